package db

import (
	"time"

	"github.com/NasaVasa/nestwatch/internal/geo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type userModel struct {
	ID             uint   `gorm:"primaryKey"`
	TelegramChatID int64  `gorm:"index:idx_users_chat,unique,where:telegram_chat_id <> 0;not null;default:0"`
	DisplayName    string `gorm:""`
	Muted          bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (userModel) TableName() string { return "users" }

type alertModel struct {
	ID             uint                        `gorm:"primaryKey"`
	UserID         uint                        `gorm:"index:idx_alerts_user_enabled_deleted,priority:1;not null"`
	Name           string                      `gorm:"not null"`
	Enabled        bool                        `gorm:"index:idx_alerts_user_enabled_deleted,priority:2"`
	Frequency      string                      `gorm:"size:16;not null"`
	PropertyTypes  datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ListingTypes   datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	City           string
	MinPrice       decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	MaxPrice       decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	MinBedrooms    *int
	MinBathrooms   *int
	MinAreaSqm     *float64
	Latitude       *float64
	Longitude      *float64
	RadiusKm       *float64
	LastNotifiedAt *time.Time
	NeedsReview    bool `gorm:"not null;default:false"`
	ReviewReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index:idx_alerts_user_enabled_deleted,priority:3"`
}

func (alertModel) TableName() string { return "alerts" }

type propertyModel struct {
	ID           uint            `gorm:"primaryKey"`
	Title        string          `gorm:"not null"`
	Status       string          `gorm:"size:16;index:idx_properties_status_created,priority:1;not null"`
	PropertyType string          `gorm:"size:32;not null"`
	ListingType  string          `gorm:"size:16;not null"`
	City         string          `gorm:"index"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Bedrooms     int
	Bathrooms    int
	AreaSqm      float64
	Latitude     float64
	Longitude    float64
	Geohash      string    `gorm:"size:12;index"`
	CreatedAt    time.Time `gorm:"index:idx_properties_status_created,priority:2"`
	UpdatedAt    time.Time
}

func (propertyModel) TableName() string { return "properties" }

// BeforeSave keeps the geohash column in step with the coordinates.
func (m *propertyModel) BeforeSave(tx *gorm.DB) error {
	m.Geohash = geo.Encode(m.Latitude, m.Longitude)
	return nil
}

type notificationModel struct {
	ID         uint   `gorm:"primaryKey"`
	AlertID    uint   `gorm:"uniqueIndex:idx_notifications_alert_property,priority:1;not null"`
	PropertyID uint   `gorm:"uniqueIndex:idx_notifications_alert_property,priority:2;not null"`
	UserID     uint   `gorm:"index;not null"`
	Status     string `gorm:"size:16;index;not null"`
	Message    string `gorm:"type:text"`
	CreatedAt  time.Time
	SentAt     *time.Time
	ReadAt     *time.Time `gorm:"index"`
}

func (notificationModel) TableName() string { return "notifications" }
