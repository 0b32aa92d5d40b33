// cmd/facts-importer - Seeds country_facts from CSV and JSON files
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"decantry/config"
	"decantry/database"
	"decantry/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	dir := flag.String("dir", "./data", "directory holding *.csv and *.json fact files")
	sqlitePath := flag.String("sqlite", "", "import into this SQLite file instead of PostgreSQL")
	replace := flag.Bool("replace", false, "delete existing facts before importing")
	flag.Parse()

	config.SetupLogging("info", false)

	db, err := openTarget(*sqlitePath)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	files, err := factFiles(*dir)
	if err != nil {
		log.Fatal("Failed to list fact files: ", err)
	}
	if len(files) == 0 {
		log.Fatalf("No .csv or .json files in %s", *dir)
	}

	var facts []models.CountryFact
	for _, path := range files {
		parsed, err := readFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		log.WithField("facts", len(parsed)).Infof("Processing: %s", filepath.Base(path))
		facts = append(facts, parsed...)
	}

	if *replace {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CountryFact{}).Error; err != nil {
			log.Fatal("Failed to clear facts: ", err)
		}
		log.Info("Existing facts cleared")
	}

	imported, err := importFacts(db, facts, 500)
	if err != nil {
		log.Fatal("Import failed: ", err)
	}

	var count int64
	db.Model(&models.CountryFact{}).Distinct("country_name").Count(&count)
	log.Infof("✓ Imported %d facts, %d countries in database", imported, count)
}

func openTarget(sqlitePath string) (*gorm.DB, error) {
	if sqlitePath != "" {
		return database.OpenSQLite(sqlitePath)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.InitDB(cfg.Database, cfg.IsProduction())
}

// factFiles lists the importable files in dir in name order.
func factFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".csv" || ext == ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readFile(path string) ([]models.CountryFact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJSON(f)
	}
	return parseCSV(f)
}

func importFacts(db *gorm.DB, facts []models.CountryFact, batchSize int) (int, error) {
	imported := 0
	for i := 0; i < len(facts); i += batchSize {
		end := i + batchSize
		if end > len(facts) {
			end = len(facts)
		}

		batch := facts[i:end]
		if err := upsertFacts(db, batch); err != nil {
			return imported, fmt.Errorf("batch %d-%d: %w", i+1, end, err)
		}
		imported += len(batch)
		log.Infof("Inserted facts %d-%d", i+1, end)
	}
	return imported, nil
}
