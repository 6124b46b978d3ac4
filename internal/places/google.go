package places

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

const defaultBaseURL = "https://maps.googleapis.com"

// Provider status strings returned by the Places and Geocoding web services.
const (
	statusOK           = "OK"
	statusZeroResults  = "ZERO_RESULTS"
	statusOverLimit    = "OVER_QUERY_LIMIT"
	statusUnknownError = "UNKNOWN_ERROR"
	statusNotFound     = "NOT_FOUND"
)

// GoogleClient talks to the Google Maps web service endpoints. It does not
// rate-limit itself; callers acquire a limiter slot before each request.
type GoogleClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// GoogleClientOption configures optional client dependencies.
type GoogleClientOption func(*GoogleClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) GoogleClientOption {
	return func(c *GoogleClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBaseURL points the client at a different endpoint, used by tests.
func WithBaseURL(baseURL string) GoogleClientOption {
	return func(c *GoogleClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// NewGoogleClient builds a provider client authenticated by API key.
func NewGoogleClient(apiKey string, opts ...GoogleClientOption) *GoogleClient {
	c := &GoogleClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
	NextPageToken string `json:"next_page_token"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
}

// Search issues one text search call and returns the page of identifiers.
func (c *GoogleClient) Search(ctx context.Context, req SearchRequest, center LatLng, pageToken string) (SearchPage, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	params.Set("radius", strconv.Itoa(req.RadiusMeters))
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}

	var payload searchResponse
	if err := c.getJSON(ctx, "/maps/api/place/textsearch/json", params, &payload); err != nil {
		return SearchPage{}, &SearchError{Cause: err}
	}

	if payload.Status != statusOK && payload.Status != statusZeroResults {
		return SearchPage{}, &SearchError{Status: payload.Status, Cause: statusError(payload.Status, payload.ErrorMessage)}
	}

	page := SearchPage{NextPageToken: payload.NextPageToken}
	for _, result := range payload.Results {
		if result.PlaceID != "" {
			page.PlaceIDs = append(page.PlaceIDs, result.PlaceID)
		}
	}
	return page, nil
}

type detailsResponse struct {
	Result       RawPlace `json:"result"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
}

// Details retrieves the full payload for one place identifier.
func (c *GoogleClient) Details(ctx context.Context, placeID string) (RawPlace, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,types")

	var payload detailsResponse
	if err := c.getJSON(ctx, "/maps/api/place/details/json", params, &payload); err != nil {
		return RawPlace{}, &DetailError{PlaceID: placeID, Transient: transientHTTPError(err), Cause: err}
	}

	if payload.Status != statusOK {
		return RawPlace{}, &DetailError{
			PlaceID:   placeID,
			Status:    payload.Status,
			Transient: transientStatus(payload.Status),
			Cause:     statusError(payload.Status, payload.ErrorMessage),
		}
	}

	if payload.Result.PlaceID == "" {
		payload.Result.PlaceID = placeID
	}
	return payload.Result, nil
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves a free-text address to coordinates.
func (c *GoogleClient) Geocode(ctx context.Context, address string) (LatLng, error) {
	params := url.Values{}
	params.Set("address", address)

	var payload geocodeResponse
	if err := c.getJSON(ctx, "/maps/api/geocode/json", params, &payload); err != nil {
		return LatLng{}, &SearchError{Cause: err}
	}

	if payload.Status != statusOK || len(payload.Results) == 0 {
		return LatLng{}, &SearchError{Status: payload.Status, Cause: fmt.Errorf("unable to geocode %q", address)}
	}
	return payload.Results[0].Geometry.Location, nil
}

func (c *GoogleClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &httpStatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

type httpStatusError struct {
	Code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d", e.Code)
}

// transientHTTPError classifies transport-level failures: network errors and
// server-side HTTP statuses are retryable, other HTTP statuses are not.
func transientHTTPError(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	return true
}

// transientStatus reports whether a provider status string is worth retrying.
func transientStatus(status string) bool {
	switch status {
	case statusOverLimit, statusUnknownError:
		return true
	default:
		return false
	}
}

func statusError(status, message string) error {
	if message != "" {
		return fmt.Errorf("provider status %s: %s", status, message)
	}
	return fmt.Errorf("provider status %s", status)
}

var (
	_ SearchProvider = (*GoogleClient)(nil)
	_ DetailProvider = (*GoogleClient)(nil)
	_ Geocoder       = (*GoogleClient)(nil)
)
