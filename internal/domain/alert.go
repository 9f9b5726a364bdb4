package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly:
		return true
	default:
		return false
	}
}

// Location is a search circle; RadiusKm is measured along the great circle.
type Location struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
	RadiusKm  float64 `validate:"gt=0"`
}

// Criteria holds optional bounds. A nil pointer or empty slice matches everything.
type Criteria struct {
	PropertyTypes []string `validate:"omitempty,dive,oneof=house apartment villa commercial land"`
	ListingTypes  []string `validate:"omitempty,dive,oneof=sale rent"`
	City          string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	MinBedrooms   *int     `validate:"omitempty,gte=0"`
	MinBathrooms  *int     `validate:"omitempty,gte=0"`
	MinAreaSqm    *float64 `validate:"omitempty,gte=0"`
	Location      *Location
}

type Alert struct {
	ID             uint
	UserID         uint
	Name           string
	Enabled        bool
	Frequency      Frequency
	Criteria       Criteria
	LastNotifiedAt *time.Time
	NeedsReview    bool
	ReviewReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WindowStart is the checkpoint: properties created at or before it were already considered.
func (a Alert) WindowStart() time.Time {
	if a.LastNotifiedAt != nil {
		return *a.LastNotifiedAt
	}
	return a.CreatedAt
}
