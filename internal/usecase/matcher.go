package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/geo"
	"github.com/go-playground/validator/v10"
)

var criteriaValidator = newCriteriaValidator()

func newCriteriaValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validatePriceBounds, domain.Criteria{})
	return v
}

func validatePriceBounds(sl validator.StructLevel) {
	c := sl.Current().Interface().(domain.Criteria)
	if c.MinPrice != nil && c.MinPrice.IsNegative() {
		sl.ReportError(c.MinPrice, "MinPrice", "MinPrice", "gte", "0")
	}
	if c.MaxPrice != nil && c.MaxPrice.IsNegative() {
		sl.ReportError(c.MaxPrice, "MaxPrice", "MaxPrice", "gte", "0")
	}
	if c.MinPrice != nil && c.MaxPrice != nil && c.MinPrice.GreaterThan(*c.MaxPrice) {
		sl.ReportError(c.MaxPrice, "MaxPrice", "MaxPrice", "gtefield", "MinPrice")
	}
}

// ValidateCriteria rejects malformed or contradictory bounds. Returned errors wrap
// domain.ErrInvalidCriteria.
func ValidateCriteria(c domain.Criteria) error {
	err := criteriaValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidCriteria, strings.Join(parts, "; "))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidCriteria, err)
}

// Match reports whether an available property satisfies every bound set on c.
func Match(c domain.Criteria, p domain.Property) bool {
	if p.Status != domain.PropertyAvailable {
		return false
	}
	if len(c.PropertyTypes) > 0 && !containsFold(c.PropertyTypes, p.PropertyType) {
		return false
	}
	if len(c.ListingTypes) > 0 && !containsFold(c.ListingTypes, p.ListingType) {
		return false
	}
	if city := strings.TrimSpace(c.City); city != "" && !strings.EqualFold(city, strings.TrimSpace(p.City)) {
		return false
	}
	if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
		return false
	}
	if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
		return false
	}
	if c.MinBedrooms != nil && p.Bedrooms < *c.MinBedrooms {
		return false
	}
	if c.MinBathrooms != nil && p.Bathrooms < *c.MinBathrooms {
		return false
	}
	if c.MinAreaSqm != nil && p.AreaSqm < *c.MinAreaSqm {
		return false
	}
	if loc := c.Location; loc != nil && !geo.Within(loc.Latitude, loc.Longitude, loc.RadiusKm, p.Latitude, p.Longitude) {
		return false
	}
	return true
}

// Eligible is Match restricted to properties created strictly after the alert's checkpoint.
func Eligible(alert domain.Alert, p domain.Property) bool {
	if !p.CreatedAt.After(alert.WindowStart()) {
		return false
	}
	return Match(alert.Criteria, p)
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
