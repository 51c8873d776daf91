package details

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// What3WordsClient converts coordinates with the what3words v3 API.
type What3WordsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewWhat3WordsClient(apiKey string, timeout time.Duration) *What3WordsClient {
	return &What3WordsClient{
		apiKey:     apiKey,
		baseURL:    "https://api.what3words.com/v3",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type w3wResponse struct {
	Words string `json:"words"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *What3WordsClient) ToWords(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("coordinates", fmt.Sprintf("%.6f,%.6f", lat, lon))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/convert-to-3wa?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("what3words request failed: %w", err)
	}
	defer resp.Body.Close()

	var body w3wResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if body.Error != nil {
		return "", fmt.Errorf("what3words %s: %s", body.Error.Code, body.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("what3words returned status %d", resp.StatusCode)
	}
	return body.Words, nil
}
