// Package catalogapi reads new listings from an external catalog service over HTTP.
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Find implements domain.PropertyCatalog. Listings without a usable price are dropped.
func (c *Client) Find(ctx context.Context, q domain.CatalogQuery) ([]domain.Property, error) {
	endpoint := c.baseURL + "/properties?" + queryParams(q).Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Error("catalog request failed", zap.String("url", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer response.Body.Close()

	c.logger.Debug(
		"catalog request complete",
		zap.String("url", endpoint),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, response.StatusCode)
	}

	var payload listingsResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrCatalogUnavailable, err)
	}

	properties := make([]domain.Property, 0, len(payload.Properties))
	for _, l := range payload.Properties {
		if !l.Price.Valid {
			c.logger.Warn("catalog listing without price skipped", zap.Uint("property_id", l.ID))
			continue
		}
		properties = append(properties, domain.Property{
			ID:           l.ID,
			Title:        l.Title,
			Status:       domain.PropertyStatus(strings.ToLower(l.Status)),
			PropertyType: l.PropertyType,
			ListingType:  l.ListingType,
			City:         l.City,
			Price:        l.Price.Decimal,
			Bedrooms:     l.Bedrooms,
			Bathrooms:    l.Bathrooms,
			AreaSqm:      l.AreaSqm,
			Latitude:     l.Latitude,
			Longitude:    l.Longitude,
			CreatedAt:    l.CreatedAt,
			UpdatedAt:    l.UpdatedAt,
		})
	}
	return properties, nil
}

func queryParams(q domain.CatalogQuery) url.Values {
	values := url.Values{}
	values.Set("created_after", q.CreatedAfter.UTC().Format(time.RFC3339Nano))
	status := q.Status
	if status == "" {
		status = domain.PropertyAvailable
	}
	values.Set("status", string(status))

	c := q.Criteria
	for _, t := range c.PropertyTypes {
		values.Add("property_type", t)
	}
	for _, t := range c.ListingTypes {
		values.Add("listing_type", t)
	}
	if c.City != "" {
		values.Set("city", c.City)
	}
	if c.MinPrice != nil {
		values.Set("min_price", c.MinPrice.String())
	}
	if c.MaxPrice != nil {
		values.Set("max_price", c.MaxPrice.String())
	}
	if c.MinBedrooms != nil {
		values.Set("min_bedrooms", strconv.Itoa(*c.MinBedrooms))
	}
	if c.MinBathrooms != nil {
		values.Set("min_bathrooms", strconv.Itoa(*c.MinBathrooms))
	}
	if c.MinAreaSqm != nil {
		values.Set("min_area_sqm", strconv.FormatFloat(*c.MinAreaSqm, 'f', -1, 64))
	}
	if loc := c.Location; loc != nil {
		values.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
		values.Set("radius_km", strconv.FormatFloat(loc.RadiusKm, 'f', -1, 64))
	}
	return values
}
