package models

import "time"

// CropStatus enumerates the lifecycle states a crop can be recorded in. The
// set is open on purpose: the store persists whatever status it is handed and
// enforces no transition order.
type CropStatus string

const (
	CropPlanted   CropStatus = "planted"
	CropGrowing   CropStatus = "growing"
	CropHarvested CropStatus = "harvested"
	CropFailed    CropStatus = "failed"
)

// Crop mirrors a row of the crops collection. UserID is immutable after
// creation.
type Crop struct {
	ID                  string     `bson:"_id" json:"id"`
	UserID              string     `bson:"user_id" json:"user_id"`
	Name                string     `bson:"name" json:"name"`
	Variety             *string    `bson:"variety,omitempty" json:"variety,omitempty"`
	PlantingDate        time.Time  `bson:"planting_date" json:"planting_date"`
	ExpectedHarvestDate *time.Time `bson:"expected_harvest_date,omitempty" json:"expected_harvest_date,omitempty"`
	ActualHarvestDate   *time.Time `bson:"actual_harvest_date,omitempty" json:"actual_harvest_date,omitempty"`
	FieldLocation       *string    `bson:"field_location,omitempty" json:"field_location,omitempty"`
	AreaPlanted         *float64   `bson:"area_planted,omitempty" json:"area_planted,omitempty"`
	Status              CropStatus `bson:"status" json:"status"`
	Notes               *string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at" json:"updated_at"`
}
