package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"weather-dashboard/cache"
	"weather-dashboard/datasource"
	"weather-dashboard/forecast"
	"weather-dashboard/models"
	"weather-dashboard/theme"

	"github.com/joho/godotenv"
)

func main() {
	city := flag.String("city", "London", "City to forecast")
	repeat := flag.Int("repeat", 1, "Number of times to fetch (repeats are served from cache)")
	cacheTTL := flag.Duration("cache", time.Minute, "Cache duration, 0 disables caching")
	rps := flag.Float64("rps", 1.0, "Rate limit in requests per second")
	burst := flag.Int("burst", 5, "Maximum burst size")
	points := flag.Int("hourly", forecast.DefaultChartPoints, "Number of hourly points to print")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file:", err)
	}

	apiKey := os.Getenv("OPENWEATHERMAP_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENWEATHERMAP_API_KEY is not set")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	var client datasource.WeatherClient = datasource.NewOpenWeatherMapClient(apiKey, logger)
	client = datasource.NewRateLimitedClient(client, *rps, *rps, *burst)
	cached := cache.NewCachedClient(client, *cacheTTL, logger)
	if *cacheTTL > 0 {
		client = cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	weather := mustCurrent(ctx, client, *city)
	upcoming := mustForecast(ctx, client, *city)
	for i := 1; i < *repeat; i++ {
		start := time.Now()
		upcoming = mustForecast(ctx, client, *city)
		fmt.Printf("Fetch #%d took %v\n", i+1, time.Since(start).Round(time.Millisecond))
	}

	now := time.Now()
	local := now.In(weather.Zone())
	th := theme.Derive(weather.ConditionMain, local.Hour())

	fmt.Printf("\n%s, %s - %.1f°C, %s (theme %s)\n",
		weather.Location, weather.Country, weather.Temperature, weather.ConditionDescription, th.Name)

	fmt.Println("\nNext hours:")
	for _, p := range forecast.Hourly(upcoming.Entries, *points) {
		fmt.Printf("  %s  %3d°C  feels %3d°C  %3d%%\n",
			p.Time.In(upcoming.Zone()).Format("Mon 15:04"), p.Temperature, p.FeelsLike, p.Humidity)
	}

	fmt.Println("\nNext days:")
	for _, d := range forecast.DailySummaries(upcoming.Entries, now, upcoming.Zone()) {
		fmt.Printf("  %s  min %5.1f  max %5.1f  avg %3d  humidity %3d%%  %s\n",
			d.Date.Format("Mon 02 Jan"), d.MinTemp, d.MaxTemp, d.AvgTemp, d.AvgHumidity, d.DominantCondition)
	}

	if *cacheTTL > 0 {
		hits, misses := cached.CacheStats()
		fmt.Printf("\nStats for %s: %d cache hits, %d cache misses\n", cached.Name(), hits, misses)
	}
}

func mustCurrent(ctx context.Context, client datasource.WeatherClient, city string) models.CurrentWeather {
	w, err := client.CurrentByName(ctx, city)
	if err != nil {
		log.Fatalf("Error fetching current weather for %s: %v", city, err)
	}
	return w
}

func mustForecast(ctx context.Context, client datasource.WeatherClient, city string) models.Forecast {
	f, err := client.Forecast(ctx, city)
	if err != nil {
		log.Fatalf("Error fetching forecast for %s: %v", city, err)
	}
	return f
}
