package entity

import (
	"time"

	"github.com/google/uuid"
)

// BusinessRecord is one fully-enriched listing produced by the pipeline.
// Optional provider fields stay nil when the provider omits them.
type BusinessRecord struct {
	PlaceID   string     `json:"place_id"`
	RunID     uuid.UUID  `json:"run_id"`
	Name      string     `json:"name"`
	Address   *string    `json:"address,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Website   *string    `json:"website,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Rating    *float64   `json:"rating,omitempty"`
	Reviews   *int       `json:"reviews,omitempty"`
	Types     []string   `json:"types,omitempty"`
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
}
