package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the dashboard API")
	city := flag.String("city", "Lima", "City to search for")
	flag.Parse()

	fmt.Println("Weather Dashboard API Client Example")
	fmt.Println("====================================")

	fmt.Printf("\nSearching for %s...\n", *city)
	state, err := call(http.MethodPost, *baseURL+"/api/search", map[string]string{"city": *city})
	if err != nil {
		fmt.Printf("Error searching: %v\n", err)
		os.Exit(1)
	}

	if state["status"] != "loaded" {
		fmt.Printf("Search failed: %v\n", state["error"])
		os.Exit(1)
	}

	weather, _ := state["weather"].(map[string]interface{})
	fmt.Printf("%s, %s: %.1f°C, %s\n", weather["location"], weather["country"], weather["temperature"], weather["conditionDescription"])

	if th, ok := state["theme"].(map[string]interface{}); ok {
		fmt.Printf("Theme: %s (%s)\n", th["name"], th["gradient"])
	}

	fmt.Println("\nNext days:")
	if days, ok := state["daily"].([]interface{}); ok {
		for _, d := range days {
			day := d.(map[string]interface{})
			fmt.Printf("  %v  min %.1f  max %.1f  avg %v  %s\n",
				day["date"], day["minTemp"], day["maxTemp"], day["avgTemp"], day["dominantCondition"])
		}
	}

	fmt.Println("\nSaving to favorites...")
	update, err := call(http.MethodPost, *baseURL+"/api/favorites", map[string]string{"city": fmt.Sprint(weather["location"])})
	if err != nil {
		fmt.Printf("Error saving favorite: %v\n", err)
		os.Exit(1)
	}
	if warning, ok := update["warning"]; ok {
		fmt.Printf("Warning: %v\n", warning)
	}

	favorites, err := call(http.MethodGet, *baseURL+"/api/favorites/weather", nil)
	if err != nil {
		fmt.Printf("Error fetching favorites: %v\n", err)
		os.Exit(1)
	}

	// Pretty print the result
	prettyJSON, _ := json.MarshalIndent(favorites, "", "  ")
	fmt.Printf("\nFavorites weather:\n%s\n", string(prettyJSON))
}

func call(method, url string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: %d %v", method, url, resp.StatusCode, data["error"])
	}
	return data, nil
}
