// Command seed loads property listings from a JSON file into the Postgres catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NasaVasa/nestwatch/internal/config"
	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/infra/db"
	"github.com/NasaVasa/nestwatch/internal/infra/log"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type listing struct {
	Title        string          `json:"title" validate:"required"`
	Status       string          `json:"status" validate:"omitempty,oneof=available pending sold rented"`
	PropertyType string          `json:"property_type" validate:"required"`
	ListingType  string          `json:"listing_type" validate:"required"`
	City         string          `json:"city" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	Bedrooms     int             `json:"bedrooms" validate:"gte=0"`
	Bathrooms    int             `json:"bathrooms" validate:"gte=0"`
	AreaSqm      float64         `json:"area_sqm" validate:"gte=0"`
	Latitude     float64         `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64         `json:"longitude" validate:"gte=-180,lte=180"`
	CreatedAt    *time.Time      `json:"created_at"`
}

func (l listing) toDomain() domain.Property {
	status := domain.PropertyStatus(strings.ToLower(l.Status))
	if status == "" {
		status = domain.PropertyAvailable
	}
	p := domain.Property{
		Title:        l.Title,
		Status:       status,
		PropertyType: l.PropertyType,
		ListingType:  l.ListingType,
		City:         l.City,
		Price:        l.Price,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		AreaSqm:      l.AreaSqm,
		Latitude:     l.Latitude,
		Longitude:    l.Longitude,
	}
	if l.CreatedAt != nil {
		p.CreatedAt = l.CreatedAt.UTC()
	}
	return p
}

func main() {
	path := flag.String("file", "", "path to a JSON array of listings")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -file listings.json")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *path); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var listings []listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close(conn) }()

	repo := db.NewPropertyRepository(conn)
	validate := validator.New()

	saved := 0
	for i, l := range listings {
		if err := validate.Struct(l); err != nil {
			logger.Warn("skipping invalid listing", zap.Int("index", i), zap.Error(err))
			continue
		}
		if l.Price.IsNegative() {
			logger.Warn("skipping listing with negative price", zap.Int("index", i))
			continue
		}
		property := l.toDomain()
		if err := repo.Save(ctx, &property); err != nil {
			return fmt.Errorf("save listing %d: %w", i, err)
		}
		saved++
	}

	logger.Info("catalog seeded", zap.Int("saved", saved), zap.Int("total", len(listings)))
	return nil
}
