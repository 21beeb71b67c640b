package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/enums"
)

// HireRequest is a customer asking a design-offering seller for a project.
type HireRequest struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	DesignerID uuid.UUID        `gorm:"column:designer_id;type:uuid;not null;index"`
	Brief      string           `gorm:"column:brief;not null"`
	Status     enums.HireStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (HireRequest) TableName() string { return "hire_requests" }

func (h *HireRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// HireRating allows one rating per direction per completed hire.
type HireRating struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	HireRequestID uuid.UUID                 `gorm:"column:hire_request_id;type:uuid;not null;uniqueIndex:ux_hire_ratings_direction,priority:1"`
	Direction     enums.HireRatingDirection `gorm:"column:direction;not null;uniqueIndex:ux_hire_ratings_direction,priority:2"`
	RaterID       uuid.UUID                 `gorm:"column:rater_id;type:uuid;not null"`
	Stars         int                       `gorm:"column:stars;not null"`
	Comment       *string                   `gorm:"column:comment"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (HireRating) TableName() string { return "hire_ratings" }

func (h *HireRating) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
