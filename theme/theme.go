// Package theme maps a weather condition and hour of day to a presentation theme.
package theme

import "strings"

// Theme is a derived visual styling descriptor
type Theme struct {
	Name        string `json:"name"`
	Gradient    string `json:"gradient"`
	AccentColor string `json:"accentColor"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
	Background  string `json:"background"`
	Text        string `json:"text"`
}

// Default is returned for unknown conditions and when no weather is loaded
var Default = Theme{
	Name:        "default",
	Gradient:    "from-blue-900 to-blue-800",
	AccentColor: "blue-500",
	Primary:     "from-blue-900 to-blue-800",
	Secondary:   "blue-500",
	Background:  "bg-gray-50",
	Text:        "text-white",
}

type variants struct {
	day   Theme
	night Theme
}

func same(t Theme) variants { return variants{day: t, night: t} }

var clouds = Theme{
	Name:        "clouds",
	Gradient:    "from-gray-600 to-gray-800",
	AccentColor: "gray-500",
	Primary:     "from-gray-600 to-gray-800",
	Secondary:   "gray-500",
	Background:  "bg-gray-50",
	Text:        "text-white",
}

var rain = Theme{
	Name:        "rain",
	Gradient:    "from-blue-800 to-blue-900",
	AccentColor: "blue-600",
	Primary:     "from-blue-800 to-blue-900",
	Secondary:   "blue-600",
	Background:  "bg-blue-50",
	Text:        "text-white",
}

var thunderstorm = Theme{
	Name:        "thunderstorm",
	Gradient:    "from-purple-900 to-indigo-900",
	AccentColor: "purple-600",
	Primary:     "from-purple-900 to-indigo-900",
	Secondary:   "purple-600",
	Background:  "bg-purple-50",
	Text:        "text-white",
}

var snow = Theme{
	Name:        "snow",
	Gradient:    "from-cyan-400 to-blue-500",
	AccentColor: "cyan-500",
	Primary:     "from-cyan-400 to-blue-500",
	Secondary:   "cyan-500",
	Background:  "bg-cyan-50",
	Text:        "text-white",
}

var haze = Theme{
	Name:        "mist",
	Gradient:    "from-gray-500 to-gray-700",
	AccentColor: "gray-600",
	Primary:     "from-gray-500 to-gray-700",
	Secondary:   "gray-600",
	Background:  "bg-gray-50",
	Text:        "text-white",
}

// themes is keyed by lower-cased condition
var themes = map[string]variants{
	"clear": {
		day: Theme{
			Name:        "clear-day",
			Gradient:    "from-yellow-400 to-orange-500",
			AccentColor: "yellow-500",
			Primary:     "from-yellow-400 to-orange-500",
			Secondary:   "yellow-500",
			Background:  "bg-yellow-50",
			Text:        "text-white",
		},
		night: Theme{
			Name:        "clear-night",
			Gradient:    "from-indigo-900 to-purple-900",
			AccentColor: "indigo-500",
			Primary:     "from-indigo-900 to-purple-900",
			Secondary:   "indigo-500",
			Background:  "bg-indigo-50",
			Text:        "text-white",
		},
	},
	"clouds":       same(clouds),
	"rain":         same(rain),
	"drizzle":      same(rain),
	"thunderstorm": same(thunderstorm),
	"snow":         same(snow),
	"mist":         same(haze),
	"fog":          same(haze),
	"haze":         same(haze),
}

// IsNight reports whether hour (0-23) falls in the night window
func IsNight(hour int) bool {
	return hour < 6 || hour > 18
}

// Derive returns the theme for a provider condition ("Clear", "Rain", ...) at hour of day.
// It is total: unknown conditions map to Default.
func Derive(conditionMain string, hour int) Theme {
	v, ok := themes[strings.ToLower(strings.TrimSpace(conditionMain))]
	if !ok {
		return Default
	}
	if IsNight(hour) {
		return v.night
	}
	return v.day
}
