package db

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := mapAlertToModel(*alert)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	alert.ID = model.ID
	alert.CreatedAt = model.CreatedAt
	alert.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, alertID uint) (*domain.Alert, error) {
	var model alertModel
	if err := r.db.WithContext(ctx).First(&model, alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	alert := mapAlertToDomain(model)
	return &alert, nil
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models), nil
}

func (r *AlertRepository) ListEnabled(ctx context.Context) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models), nil
}

func (r *AlertRepository) SetEnabled(ctx context.Context, userID uint, alertID uint, enabled bool) error {
	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ? AND user_id = ?", alertID, userID).Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, userID uint, alertID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", alertID, userID).Delete(&alertModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdvanceCheckpoint moves last_notified_at to next only if it still equals prev.
func (r *AlertRepository) AdvanceCheckpoint(ctx context.Context, alertID uint, prev *time.Time, next time.Time) error {
	query := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ?", alertID)
	if prev == nil {
		query = query.Where("last_notified_at IS NULL")
	} else {
		query = query.Where("last_notified_at = ?", prev.UTC())
	}

	// Postgres keeps microseconds and rounds; truncating keeps the stored value at or before next.
	result := query.Update("last_notified_at", next.UTC().Truncate(time.Microsecond))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ?", alertID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrCheckpointConflict
}

func (r *AlertRepository) FlagForReview(ctx context.Context, alertID uint, reason string) error {
	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ?", alertID).Updates(map[string]interface{}{
		"needs_review":  true,
		"review_reason": reason,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapAlertsToDomain(models []alertModel) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, mapAlertToDomain(model))
	}
	return alerts
}

func mapAlertToDomain(model alertModel) domain.Alert {
	criteria := domain.Criteria{
		PropertyTypes: []string(model.PropertyTypes),
		ListingTypes:  []string(model.ListingTypes),
		City:          model.City,
		MinBedrooms:   model.MinBedrooms,
		MinBathrooms:  model.MinBathrooms,
		MinAreaSqm:    model.MinAreaSqm,
	}
	if model.MinPrice.Valid {
		v := model.MinPrice.Decimal
		criteria.MinPrice = &v
	}
	if model.MaxPrice.Valid {
		v := model.MaxPrice.Decimal
		criteria.MaxPrice = &v
	}
	if model.Latitude != nil && model.Longitude != nil && model.RadiusKm != nil {
		criteria.Location = &domain.Location{
			Latitude:  *model.Latitude,
			Longitude: *model.Longitude,
			RadiusKm:  *model.RadiusKm,
		}
	}

	return domain.Alert{
		ID:             model.ID,
		UserID:         model.UserID,
		Name:           model.Name,
		Enabled:        model.Enabled,
		Frequency:      domain.Frequency(model.Frequency),
		Criteria:       criteria,
		LastNotifiedAt: model.LastNotifiedAt,
		NeedsReview:    model.NeedsReview,
		ReviewReason:   model.ReviewReason,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func mapAlertToModel(alert domain.Alert) alertModel {
	c := alert.Criteria
	model := alertModel{
		ID:             alert.ID,
		UserID:         alert.UserID,
		Name:           alert.Name,
		Enabled:        alert.Enabled,
		Frequency:      string(alert.Frequency),
		PropertyTypes:  c.PropertyTypes,
		ListingTypes:   c.ListingTypes,
		City:           c.City,
		MinPrice:       nullDecimal(c.MinPrice),
		MaxPrice:       nullDecimal(c.MaxPrice),
		MinBedrooms:    c.MinBedrooms,
		MinBathrooms:   c.MinBathrooms,
		MinAreaSqm:     c.MinAreaSqm,
		LastNotifiedAt: alert.LastNotifiedAt,
		NeedsReview:    alert.NeedsReview,
		ReviewReason:   alert.ReviewReason,
		CreatedAt:      alert.CreatedAt,
		UpdatedAt:      alert.UpdatedAt,
	}
	if loc := c.Location; loc != nil {
		lat, lon, radius := loc.Latitude, loc.Longitude, loc.RadiusKm
		model.Latitude = &lat
		model.Longitude = &lon
		model.RadiusKm = &radius
	}
	return model
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
