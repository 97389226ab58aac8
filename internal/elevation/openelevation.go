package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// OpenElevationName is the data source tag of the Open-Elevation service.
const OpenElevationName = "open-elevation"

// OpenElevation queries an Open-Elevation compatible lookup endpoint.
type OpenElevation struct {
	endpoint string
	client   *http.Client
}

// NewOpenElevation creates a client for endpoint, e.g.
// https://api.open-elevation.com/api/v1/lookup.
func NewOpenElevation(endpoint string, timeout time.Duration) *OpenElevation {
	return &OpenElevation{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (o *OpenElevation) Name() string { return OpenElevationName }

type lookupLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupRequest struct {
	Locations []lookupLocation `json:"locations"`
}

type lookupResult struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

type lookupResponse struct {
	Results []lookupResult `json:"results"`
}

// Lookup implements Source with a single POST per batch.
func (o *OpenElevation) Lookup(ctx context.Context, points []Point) ([]float64, error) {
	req := lookupRequest{Locations: make([]lookupLocation, len(points))}
	for i, p := range points {
		req.Locations[i] = lookupLocation{Latitude: p.Lat, Longitude: p.Lon}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding lookup request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lookup returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if len(out.Results) != len(points) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShortBatch, len(out.Results), len(points))
	}

	values := make([]float64, len(points))
	for i, r := range out.Results {
		if r.Elevation == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *r.Elevation
	}
	return values, nil
}
