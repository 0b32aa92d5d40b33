// models/content.go - Quiz content
package models

// CountryFact is one numbered clue about a country. Lower numbers are harder clues.
type CountryFact struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	CountryName string `json:"country_name" gorm:"not null;size:100;uniqueIndex:idx_country_facts_number"`
	FactNumber  int    `json:"fact_number" gorm:"not null;uniqueIndex:idx_country_facts_number"`
	FactContent string `json:"fact_content" gorm:"type:text;not null"`
}

func (CountryFact) TableName() string {
	return "country_facts"
}
