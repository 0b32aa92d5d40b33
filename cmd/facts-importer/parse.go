package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"decantry/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// parseCSV reads rows of "id","country","fact_number","fact" after a header row. The id column
// is ignored.
func parseCSV(r io.Reader) ([]models.CountryFact, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var facts []models.CountryFact
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return facts, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 {
			continue
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("line %d: want 4 columns, got %d", line, len(record))
		}
		fact, err := newFact(record[1], record[2], record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		facts = append(facts, fact)
	}
}

func newFact(country, number, content string) (models.CountryFact, error) {
	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil || n < 1 {
		return models.CountryFact{}, fmt.Errorf("invalid fact number %q", number)
	}
	country = strings.TrimSpace(country)
	content = strings.TrimSpace(content)
	if country == "" || content == "" {
		return models.CountryFact{}, errors.New("country and fact are required")
	}
	return models.CountryFact{CountryName: country, FactNumber: n, FactContent: content}, nil
}

type jsonCountry struct {
	Country string   `json:"country"`
	Facts   []string `json:"facts"`
}

// parseJSON reads [{"country": "...", "facts": ["...", ...]}]; facts are numbered from 1 in order.
func parseJSON(r io.Reader) ([]models.CountryFact, error) {
	var countries []jsonCountry
	if err := json.NewDecoder(r).Decode(&countries); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var facts []models.CountryFact
	for _, c := range countries {
		for i, content := range c.Facts {
			fact, err := newFact(c.Country, strconv.Itoa(i+1), content)
			if err != nil {
				return nil, fmt.Errorf("%s fact %d: %w", c.Country, i+1, err)
			}
			facts = append(facts, fact)
		}
	}
	return facts, nil
}

// upsertFacts inserts facts, replacing the content of an existing (country, number) pair.
func upsertFacts(db *gorm.DB, facts []models.CountryFact) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "country_name"}, {Name: "fact_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"fact_content"}),
	}).Create(&facts).Error
}
