// services/content.go - Quiz content drawn from the country_facts table
package services

import (
	"context"
	"fmt"
	"time"

	"decantry/models"

	"gorm.io/gorm"
)

// ContentSource supplies quiz items (countries) and their clues (facts).
type ContentSource interface {
	RandomItem(ctx context.Context) (string, error)
	DistinctItems(ctx context.Context, n int) ([]string, error)
	Clues(ctx context.Context, item string) ([]string, error)
	ClueInBand(ctx context.Context, item string, minRank, maxRank int) (string, error)
	DailyItem(ctx context.Context, day time.Time) (string, error)
}

// Question is a single item with one clue, as used by Expert rounds and Timed play.
type Question struct {
	Target string `json:"name"`
	Clue   string `json:"fact"`
}

type FactStore struct {
	db *gorm.DB
}

func NewFactStore(db *gorm.DB) *FactStore {
	return &FactStore{db: db}
}

func (s *FactStore) RandomItem(ctx context.Context) (string, error) {
	items, err := s.DistinctItems(ctx, 1)
	if err != nil {
		return "", err
	}
	return items[0], nil
}

// DistinctItems returns n different items in random order, or ErrContentUnavailable if the
// store holds fewer.
func (s *FactStore) DistinctItems(ctx context.Context, n int) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.CountryFact{}).
		Group("country_name").
		Order("RANDOM()").
		Limit(n).
		Pluck("country_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to draw countries: %w", err)
	}
	if len(names) < n {
		return nil, fmt.Errorf("%w: wanted %d countries, have %d", ErrContentUnavailable, n, len(names))
	}
	return names, nil
}

// Clues returns every fact for item in fact order.
func (s *FactStore) Clues(ctx context.Context, item string) ([]string, error) {
	var facts []string
	err := s.db.WithContext(ctx).Model(&models.CountryFact{}).
		Where("country_name = ?", item).
		Order("fact_number ASC").
		Pluck("fact_content", &facts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("%w: no facts for %s", ErrContentUnavailable, item)
	}
	return facts, nil
}

// ClueInBand returns one random fact of item whose number lies in [minRank, maxRank].
func (s *FactStore) ClueInBand(ctx context.Context, item string, minRank, maxRank int) (string, error) {
	var facts []string
	err := s.db.WithContext(ctx).Model(&models.CountryFact{}).
		Where("country_name = ? AND fact_number >= ? AND fact_number <= ?", item, minRank, maxRank).
		Order("RANDOM()").
		Limit(1).
		Pluck("fact_content", &facts).Error
	if err != nil {
		return "", fmt.Errorf("failed to load fact: %w", err)
	}
	if len(facts) == 0 {
		return "", fmt.Errorf("%w: no facts %d..%d for %s", ErrContentUnavailable, minRank, maxRank, item)
	}
	return facts[0], nil
}

// DailyItem picks the item of the day: days since the Unix epoch modulo the number of items,
// over items sorted by name.
func (s *FactStore) DailyItem(ctx context.Context, day time.Time) (string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.CountryFact{}).
		Group("country_name").
		Order("country_name ASC").
		Pluck("country_name", &names).Error
	if err != nil {
		return "", fmt.Errorf("failed to list countries: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no countries", ErrContentUnavailable)
	}
	return names[DailyIndex(day, len(names))], nil
}

// DailyIndex maps a calendar day (UTC) onto [0, count).
func DailyIndex(day time.Time, count int) int {
	days := day.UTC().Unix() / int64(24*time.Hour/time.Second)
	return int(days % int64(count))
}

// drawQuestion picks a random item and one of its clues in [minRank, maxRank].
func drawQuestion(ctx context.Context, content ContentSource, minRank, maxRank int) (Question, error) {
	item, err := content.RandomItem(ctx)
	if err != nil {
		return Question{}, err
	}
	clue, err := content.ClueInBand(ctx, item, minRank, maxRank)
	if err != nil {
		return Question{}, err
	}
	return Question{Target: item, Clue: clue}, nil
}
