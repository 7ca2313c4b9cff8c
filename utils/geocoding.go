package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoGeocodingResult is returned when the service found no match for the address
var ErrNoGeocodingResult = errors.New("no geocoding result for address")

// GeocodingResult represents the result of a geocoding operation
type GeocodingResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
}

// Geocoder converts addresses to coordinates using an OpenStreetMap Nominatim endpoint
type Geocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewGeocoder(baseURL, userAgent string) *Geocoder {
	return &Geocoder{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Geocode looks up a single best match for the address
func (g *Geocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	cleanAddress := strings.TrimSpace(address)
	if cleanAddress == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	apiURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.BaseURL, url.QueryEscape(cleanAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	// Nominatim rejects requests without an identifying agent
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status: %d", resp.StatusCode)
	}

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoGeocodingResult
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in response: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in response: %w", err)
	}

	return &GeocodingResult{
		Latitude:  lat,
		Longitude: lon,
		City:      extractCity(result.DisplayName),
	}, nil
}

// extractCity returns the first component of a display name
func extractCity(displayName string) string {
	parts := strings.Split(displayName, ",")
	return strings.TrimSpace(parts[0])
}
