package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// Notification stores in-app notifications. Admin notifications carry no
// customer id and are shared by every operator.
type Notification struct {
	ID         uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Audience   enums.NotificationAudience `gorm:"type:notification_audience;not null"`
	CustomerID *uuid.UUID                 `gorm:"type:uuid"`
	OrderID    *uuid.UUID                 `gorm:"type:uuid"`
	Type       enums.NotificationType     `gorm:"type:notification_type;not null"`
	Title      string                     `gorm:"type:text;not null"`
	Message    string                     `gorm:"type:text;not null"`
	Link       *string                    `gorm:"type:text"`
	ReadAt     *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt  time.Time                  `gorm:"type:timestamptz;autoCreateTime"`
}
