package details

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	nearbyRadiusMeters = 1000
	nearbyLimit        = 10
)

// OverpassClient finds named amenities around a point in OpenStreetMap data.
type OverpassClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewOverpassClient(endpoint string, timeout time.Duration) *OverpassClient {
	if endpoint == "" {
		endpoint = "https://overpass-api.de/api/interpreter"
	}
	return &OverpassClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

func (c *OverpassClient) Nearby(ctx context.Context, lat, lon float64) ([]Place, error) {
	query := fmt.Sprintf(
		"[out:json][timeout:10];node(around:%d,%.6f,%.6f)[amenity][name];out %d;",
		nearbyRadiusMeters, lat, lon, nearbyLimit,
	)
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var body overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	places := make([]Place, 0, len(body.Elements))
	for _, el := range body.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		places = append(places, Place{
			Name: name,
			Type: strings.ReplaceAll(el.Tags["amenity"], "_", " "),
		})
		if len(places) == nearbyLimit {
			break
		}
	}
	return places, nil
}
