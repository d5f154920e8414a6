package forecast

import (
	"time"

	"weather-dashboard/models"
)

// ChartPoint is one point of the hourly temperature chart
type ChartPoint struct {
	Time        time.Time `json:"time"`
	Temperature int       `json:"temperature"`
	FeelsLike   int       `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
}

// Hourly returns the first n entries as chart points. A non-positive n
// uses DefaultChartPoints.
func Hourly(entries []models.ForecastEntry, n int) []ChartPoint {
	if n <= 0 {
		n = DefaultChartPoints
	}
	if n > len(entries) {
		n = len(entries)
	}

	points := make([]ChartPoint, 0, n)
	for _, e := range entries[:n] {
		points = append(points, ChartPoint{
			Time:        e.Timestamp,
			Temperature: roundHalfUp(e.Temperature),
			FeelsLike:   roundHalfUp(e.FeelsLike),
			Humidity:    roundHalfUp(e.Humidity),
		})
	}
	return points
}
