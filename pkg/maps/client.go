package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

const (
	defaultBaseURL             = "https://api.mapbox.com"
	defaultProfile             = "driving"
	errorBodyReadLimit   int64 = 1024
	defaultClientTimeout       = 10 * time.Second
)

var errAccessTokenRequired = errors.New("routing access token is required")

// Client calls a Mapbox-compatible directions API and returns GeoJSON routes.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	profile     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the directions API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the HTTP client timeout when no custom client is supplied.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(accessToken string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	client := &Client{
		accessToken: token,
		baseURL:     defaultBaseURL,
		profile:     defaultProfile,
		httpClient:  &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// LineString is a GeoJSON LineString. Coordinates are [lng, lat] pairs.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Route is a single driving route.
type Route struct {
	Geometry        LineString `json:"geometry"`
	DistanceMeters  float64    `json:"distanceMeters"`
	DurationSeconds float64    `json:"durationSeconds"`
}

// Directions returns the best driving route from origin to destination.
func (c *Client) Directions(ctx context.Context, origin, destination types.LatLng) (*Route, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}

	resp, err := c.do(ctx, c.directionsURL(origin, destination))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "directions request failed")
	}

	var apiResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Routes  []struct {
			Geometry LineString `json:"geometry"`
			Distance float64    `json:"distance"`
			Duration float64    `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode directions response")
	}
	if apiResp.Code != "Ok" || len(apiResp.Routes) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeDependency, "no route found (%s)", strings.TrimSpace(apiResp.Code+" "+apiResp.Message))
	}

	best := apiResp.Routes[0]
	if best.Geometry.Type == "" {
		best.Geometry.Type = "LineString"
	}
	return &Route{
		Geometry:        best.Geometry,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}

func (c *Client) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build directions request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute directions request")
	}
	return resp, nil
}

func (c *Client) directionsURL(origin, destination types.LatLng) string {
	coords := fmt.Sprintf("%f,%f;%f,%f", origin.Lng, origin.Lat, destination.Lng, destination.Lat)
	query := url.Values{}
	query.Set("geometries", "geojson")
	query.Set("overview", "full")
	query.Set("access_token", c.accessToken)
	return fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s",
		strings.TrimRight(c.baseURL, "/"), c.profile, url.PathEscape(coords), query.Encode())
}
