package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/geo"
	"gorm.io/gorm"
)

// PropertyRepository is the Postgres-backed catalog.
type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Find returns candidate listings ordered by creation time. The SQL filter is a
// superset of the criteria; callers run the exact predicate on the result.
func (r *PropertyRepository) Find(ctx context.Context, q domain.CatalogQuery) ([]domain.Property, error) {
	where, args := buildCatalogFilter(q)

	var models []propertyModel
	if err := r.db.WithContext(ctx).Where(where, args...).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	properties := make([]domain.Property, 0, len(models))
	for _, model := range models {
		properties = append(properties, mapPropertyToDomain(model))
	}
	return properties, nil
}

func (r *PropertyRepository) GetByID(ctx context.Context, propertyID uint) (*domain.Property, error) {
	var model propertyModel
	if err := r.db.WithContext(ctx).First(&model, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	property := mapPropertyToDomain(model)
	return &property, nil
}

// Save inserts a listing, or updates it when ID is set.
func (r *PropertyRepository) Save(ctx context.Context, property *domain.Property) error {
	model := mapPropertyToModel(*property)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return err
	}
	property.ID = model.ID
	property.CreatedAt = model.CreatedAt
	property.UpdatedAt = model.UpdatedAt
	return nil
}

type catalogFilter struct {
	conditions []string
	args       []interface{}
}

func (f *catalogFilter) add(condition string, args ...interface{}) {
	f.conditions = append(f.conditions, condition)
	f.args = append(f.args, args...)
}

func (f *catalogFilter) build() (string, []interface{}) {
	return strings.Join(f.conditions, " AND "), f.args
}

// buildCatalogFilter pushes the criteria down as parameterized conditions.
// Coordinates only ever reach the database as bind values.
func buildCatalogFilter(q domain.CatalogQuery) (string, []interface{}) {
	f := &catalogFilter{}
	f.add("created_at > ?", q.CreatedAfter.UTC())

	status := q.Status
	if status == "" {
		status = domain.PropertyAvailable
	}
	f.add("status = ?", string(status))

	c := q.Criteria
	if len(c.PropertyTypes) > 0 {
		f.add("LOWER(property_type) IN ?", lowerAll(c.PropertyTypes))
	}
	if len(c.ListingTypes) > 0 {
		f.add("LOWER(listing_type) IN ?", lowerAll(c.ListingTypes))
	}
	if city := strings.TrimSpace(c.City); city != "" {
		f.add("LOWER(TRIM(city)) = ?", strings.ToLower(city))
	}
	if c.MinPrice != nil {
		f.add("price >= ?", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		f.add("price <= ?", *c.MaxPrice)
	}
	if c.MinBedrooms != nil {
		f.add("bedrooms >= ?", *c.MinBedrooms)
	}
	if c.MinBathrooms != nil {
		f.add("bathrooms >= ?", *c.MinBathrooms)
	}
	if c.MinAreaSqm != nil {
		f.add("area_sqm >= ?", *c.MinAreaSqm)
	}
	if loc := c.Location; loc != nil {
		cells := geo.CoveringCells(loc.Latitude, loc.Longitude, loc.RadiusKm)
		if len(cells) > 0 {
			clauses := make([]string, 0, len(cells))
			args := make([]interface{}, 0, len(cells))
			for _, cell := range cells {
				clauses = append(clauses, "geohash LIKE ?")
				args = append(args, cell+"%")
			}
			f.add("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}
	return f.build()
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

func mapPropertyToDomain(model propertyModel) domain.Property {
	return domain.Property{
		ID:           model.ID,
		Title:        model.Title,
		Status:       domain.PropertyStatus(model.Status),
		PropertyType: model.PropertyType,
		ListingType:  model.ListingType,
		City:         model.City,
		Price:        model.Price,
		Bedrooms:     model.Bedrooms,
		Bathrooms:    model.Bathrooms,
		AreaSqm:      model.AreaSqm,
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func mapPropertyToModel(property domain.Property) propertyModel {
	return propertyModel{
		ID:           property.ID,
		Title:        property.Title,
		Status:       string(property.Status),
		PropertyType: property.PropertyType,
		ListingType:  property.ListingType,
		City:         property.City,
		Price:        property.Price,
		Bedrooms:     property.Bedrooms,
		Bathrooms:    property.Bathrooms,
		AreaSqm:      property.AreaSqm,
		Latitude:     property.Latitude,
		Longitude:    property.Longitude,
		CreatedAt:    property.CreatedAt,
		UpdatedAt:    property.UpdatedAt,
	}
}
