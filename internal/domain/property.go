package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "available"
	PropertyPending   PropertyStatus = "pending"
	PropertySold      PropertyStatus = "sold"
	PropertyRented    PropertyStatus = "rented"
)

type Property struct {
	ID           uint
	Title        string
	Status       PropertyStatus
	PropertyType string
	ListingType  string
	City         string
	Price        decimal.Decimal
	Bedrooms     int
	Bathrooms    int
	AreaSqm      float64
	Latitude     float64
	Longitude    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CatalogQuery is the filter a pass needs evaluated by the property catalog.
type CatalogQuery struct {
	CreatedAfter time.Time
	Status       PropertyStatus
	Criteria     Criteria
}
