package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-lookup/internal/details"
	"github.com/i474232898/weather-lookup/internal/export"
	"github.com/i474232898/weather-lookup/internal/locquery"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// User-facing messages for failed requests without a server message.
const (
	MsgNotFound      = "Location not found. Please check your input."
	MsgInvalidFormat = "Invalid location format. Please check your input."
	MsgFetchFailed   = "Failed to fetch weather data. Please try again."
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Client talks to the weather lookup REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search validates input locally and, when it is acceptable, looks it up.
// A rejected input returns the classifier's reason without a request.
func (c *Client) Search(ctx context.Context, input string) (weather.Report, error) {
	q := locquery.Classify(input)
	if !q.Valid() {
		return weather.Report{}, q.Err()
	}

	var report weather.Report
	err := c.doJSON(ctx, http.MethodGet, "/api/weather/"+url.PathEscape(q.Query), nil, &report)
	return report, err
}

// Locations lists every location searched so far.
func (c *Client) Locations(ctx context.Context) ([]weather.Location, error) {
	var locations []weather.Location
	err := c.doJSON(ctx, http.MethodGet, "/api/locations", nil, &locations)
	return locations, err
}

// History returns the records of a location, newest first.
func (c *Client) History(ctx context.Context, locationID int64) ([]weather.Record, error) {
	var records []weather.Record
	err := c.doJSON(ctx, http.MethodGet, "/api/weather/history/"+strconv.FormatInt(locationID, 10), nil, &records)
	return records, err
}

func (c *Client) Details(ctx context.Context, locationID int64) (details.Details, error) {
	var d details.Details
	err := c.doJSON(ctx, http.MethodGet, "/api/locations/details/"+strconv.FormatInt(locationID, 10), nil, &d)
	return d, err
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/weather/record/"+strconv.FormatInt(id, 10), nil, nil)
}

// Export downloads the history of a location rendered in format. The file
// name comes from the Content-Disposition header.
func (c *Client) Export(ctx context.Context, locationID int64, format export.Format) ([]byte, string, error) {
	body, err := json.Marshal(map[string]string{"format": string(format)})
	if err != nil {
		return nil, "", err
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/exports/weather/"+strconv.FormatInt(locationID, 10), body)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	return data, attachmentName(resp.Header.Get("Content-Disposition"), format), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// do sends one request. Non-2xx responses are turned into *APIError and
// their body is closed.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, newAPIError(resp)
}

func newAPIError(resp *http.Response) *APIError {
	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	}

	msg := MsgFetchFailed
	switch resp.StatusCode {
	case http.StatusNotFound:
		msg = MsgNotFound
	case http.StatusBadRequest:
		msg = MsgInvalidFormat
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// UserMessage is the text to show for err from any client method.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, locquery.ErrEmpty), errors.Is(err, locquery.ErrPostalFormat), errors.Is(err, locquery.ErrCityOrPostal):
		return err.Error()
	default:
		return MsgFetchFailed
	}
}

func attachmentName(header string, format export.Format) string {
	if _, params, err := mime.ParseMediaType(header); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return format.FileName()
}
