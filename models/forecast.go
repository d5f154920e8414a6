package models

import (
	"time"
)

// ForecastEntry is a single 3-hour forecast step
type ForecastEntry struct {
	Timestamp                time.Time `json:"timestamp"`
	Temperature              float64   `json:"temperature"` // in Celsius
	FeelsLike                float64   `json:"feelsLike"`   // in Celsius
	Humidity                 float64   `json:"humidity"`    // percentage
	Pressure                 float64   `json:"pressure"`    // in hPa
	WindSpeed                float64   `json:"windSpeed"`   // in m/s
	PrecipitationProbability float64   `json:"pop"`         // 0..1
	ConditionMain            string    `json:"conditionMain"`
	ConditionDescription     string    `json:"conditionDescription"`
	Icon                     string    `json:"icon"`
}

// Forecast is the ordered sequence of forecast steps for one location.
// Entries keep the order the provider returned them in.
type Forecast struct {
	Location       string          `json:"location"`
	Country        string          `json:"country"`
	Coordinates    Coordinates     `json:"coordinates"`
	TimezoneOffset int             `json:"timezoneOffset"` // seconds east of UTC
	Entries        []ForecastEntry `json:"entries"`
	Updated        time.Time       `json:"updated"`
}

// Zone returns the fixed time zone of the forecast location
func (f Forecast) Zone() *time.Location {
	return time.FixedZone("", f.TimezoneOffset)
}

// DailyForecastSummary is derived from the entries of one calendar day
type DailyForecastSummary struct {
	Date              time.Time `json:"date"`
	MinTemp           float64   `json:"minTemp"`
	MaxTemp           float64   `json:"maxTemp"`
	AvgTemp           int       `json:"avgTemp"`
	AvgFeelsLike      int       `json:"avgFeelsLike"`
	AvgHumidity       int       `json:"avgHumidity"`
	DominantCondition string    `json:"dominantCondition"`
	Icon              string    `json:"icon"`
	Entries           int       `json:"entries"`
}
