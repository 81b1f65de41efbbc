package models

import "time"

// ActivityType enumerates the supported farm activity categories.
type ActivityType string

const (
	ActivityPlanting    ActivityType = "planting"
	ActivityWatering    ActivityType = "watering"
	ActivityFertilizing ActivityType = "fertilizing"
	ActivityHarvesting  ActivityType = "harvesting"
	ActivityPestControl ActivityType = "pest_control"
	ActivityOther       ActivityType = "other"
)

// FarmActivity mirrors a row of the farm_activities collection. CropID is
// optional; an activity without one is a general farm activity.
type FarmActivity struct {
	ID            string       `bson:"_id" json:"id"`
	UserID        string       `bson:"user_id" json:"user_id"`
	CropID        *string      `bson:"crop_id,omitempty" json:"crop_id,omitempty"`
	ActivityType  ActivityType `bson:"activity_type" json:"activity_type"`
	Description   string       `bson:"description" json:"description"`
	Date          time.Time    `bson:"date" json:"date"`
	DurationHours *float64     `bson:"duration_hours,omitempty" json:"duration_hours,omitempty"`
	Cost          *float64     `bson:"cost,omitempty" json:"cost,omitempty"`
	Notes         *string      `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updated_at"`
}
