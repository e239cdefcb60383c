package learndb

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressRecord is the persisted form of a profile's Progression.
type ProgressRecord struct {
	ProfileID   string         `gorm:"column:profile_id;primaryKey;size:128" json:"profile_id"`
	Completed   datatypes.JSON `gorm:"column:completed" json:"completed"`
	TotalPoints int            `gorm:"column:total_points;not null;default:0" json:"total_points"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ProgressRecord) TableName() string { return "studio_progress" }
