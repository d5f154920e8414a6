// Package forecast turns the provider's 3-hour forecast steps into the
// per-day summaries and chart points shown by the dashboard.
package forecast

import (
	"math"
	"sort"
	"time"

	"weather-dashboard/models"
)

const (
	// MaxDays is the number of daily summaries shown after today
	MaxDays = 5

	// DefaultChartPoints is the number of hourly points in the temperature chart
	DefaultChartPoints = 8
)

type dayBucket struct {
	date    time.Time
	entries []models.ForecastEntry
}

// DailySummaries groups entries by calendar date in loc, skips the day
// containing now and summarizes up to MaxDays following days in order.
// Fewer days in the input produce fewer summaries.
func DailySummaries(entries []models.ForecastEntry, now time.Time, loc *time.Location) []models.DailyForecastSummary {
	if loc == nil {
		loc = time.UTC
	}

	today := dateOf(now, loc)
	buckets := make(map[time.Time]*dayBucket)
	for _, e := range entries {
		day := dateOf(e.Timestamp, loc)
		if day.Equal(today) {
			continue
		}
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{date: day}
			buckets[day] = b
		}
		b.entries = append(b.entries, e)
	}

	days := make([]*dayBucket, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, b)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].date.Before(days[j].date)
	})
	if len(days) > MaxDays {
		days = days[:MaxDays]
	}

	summaries := make([]models.DailyForecastSummary, 0, len(days))
	for _, b := range days {
		summaries = append(summaries, summarize(b))
	}
	return summaries
}

func summarize(b *dayBucket) models.DailyForecastSummary {
	entries := make([]models.ForecastEntry, len(b.entries))
	copy(entries, b.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	minTemp := math.Inf(1)
	maxTemp := math.Inf(-1)
	var sumTemp, sumFeels, sumHumidity float64
	for _, e := range entries {
		minTemp = math.Min(minTemp, e.Temperature)
		maxTemp = math.Max(maxTemp, e.Temperature)
		sumTemp += e.Temperature
		sumFeels += e.FeelsLike
		sumHumidity += e.Humidity
	}

	n := float64(len(entries))
	return models.DailyForecastSummary{
		Date:              b.date,
		MinTemp:           minTemp,
		MaxTemp:           maxTemp,
		AvgTemp:           roundHalfUp(sumTemp / n),
		AvgFeelsLike:      roundHalfUp(sumFeels / n),
		AvgHumidity:       roundHalfUp(sumHumidity / n),
		DominantCondition: dominantCondition(entries),
		Icon:              entries[0].Icon,
		Entries:           len(entries),
	}
}

// dominantCondition returns the most frequent condition; the one seen
// first wins a tie
func dominantCondition(entries []models.ForecastEntry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if _, ok := counts[e.ConditionMain]; !ok {
			order = append(order, e.ConditionMain)
		}
		counts[e.ConditionMain]++
	}

	best := ""
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
