package models

import (
	"time"
)

// Coordinates is a geographic position in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// CurrentWeather is a snapshot of conditions for one location at fetch time
type CurrentWeather struct {
	Location             string      `json:"location"`
	Country              string      `json:"country"`
	Coordinates          Coordinates `json:"coordinates"`
	Temperature          float64     `json:"temperature"` // in Celsius
	FeelsLike            float64     `json:"feelsLike"`   // in Celsius
	Humidity             float64     `json:"humidity"`    // percentage
	Pressure             float64     `json:"pressure"`    // in hPa
	WindSpeed            float64     `json:"windSpeed"`   // in m/s
	WindDeg              int         `json:"windDeg"`
	ConditionMain        string      `json:"conditionMain"`
	ConditionDescription string      `json:"conditionDescription"`
	Icon                 string      `json:"icon"`
	Visibility           *int        `json:"visibility,omitempty"` // in meters, not always reported
	Sunrise              time.Time   `json:"sunrise"`
	Sunset               time.Time   `json:"sunset"`
	TimezoneOffset       int         `json:"timezoneOffset"` // seconds east of UTC
	Timestamp            time.Time   `json:"timestamp"`
}

// Zone returns the fixed time zone of the observed location
func (w CurrentWeather) Zone() *time.Location {
	return time.FixedZone("", w.TimezoneOffset)
}
