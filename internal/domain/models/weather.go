package models

import "time"

// WeatherRecord mirrors a row of the weather_data collection. The local cache
// keeps only the 30 most recent records; the remote collection is uncapped.
type WeatherRecord struct {
	ID               string    `bson:"_id" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	Location         string    `bson:"location" json:"location"`
	Temperature      float64   `bson:"temperature" json:"temperature"`
	Humidity         float64   `bson:"humidity" json:"humidity"`
	Rainfall         float64   `bson:"rainfall" json:"rainfall"`
	WindSpeed        float64   `bson:"wind_speed" json:"wind_speed"`
	WeatherCondition string    `bson:"weather_condition" json:"weather_condition"`
	RecordedAt       time.Time `bson:"recorded_at" json:"recorded_at"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	Notes            *string   `bson:"notes,omitempty" json:"notes,omitempty"`
}
