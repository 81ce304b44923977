// Package petdata is a read-only client for the shelter/pet data API that
// seeds the shelter layer. The API is consumed as-is; the board never writes
// back.
package petdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pawmap/mapboard/internal/resilience"
)

// Shelter is one shelter record from the data API.
type Shelter struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Latitude       float64 `json:"lat" yaml:"lat"`
	Longitude      float64 `json:"lng" yaml:"lng"`
	Address        string  `json:"address,omitempty" yaml:"address,omitempty"`
	Website        string  `json:"website,omitempty" yaml:"website,omitempty"`
	AvailableCount int     `json:"available_count" yaml:"available_count"`
}

// Pet is one adoptable-pet record from the data API.
type Pet struct {
	ID        string `json:"id" yaml:"id"`
	ShelterID string `json:"shelter_id" yaml:"shelter_id"`
	Name      string `json:"name" yaml:"name"`
	Species   string `json:"species" yaml:"species"`
	Breed     string `json:"breed,omitempty" yaml:"breed,omitempty"`
	AgeText   string `json:"age_text,omitempty" yaml:"age_text,omitempty"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
}

// Client lists shelters and pets.
type Client interface {
	ListShelters(ctx context.Context) ([]Shelter, error)
	ListPets(ctx context.Context, shelterID string) ([]Pet, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.client = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.Config) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.Config
}

// NewClient creates a pet data API client.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		retry:   resilience.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListShelters fetches every shelter.
func (c *httpClient) ListShelters(ctx context.Context) ([]Shelter, error) {
	var shelters []Shelter
	if err := c.getJSON(ctx, "/shelters", &shelters); err != nil {
		return nil, eris.Wrap(err, "petdata: list shelters")
	}
	return shelters, nil
}

// ListPets fetches the pets for one shelter.
func (c *httpClient) ListPets(ctx context.Context, shelterID string) ([]Pet, error) {
	var pets []Pet
	path := "/pets?shelter_id=" + url.QueryEscape(shelterID)
	if err := c.getJSON(ctx, path, &pets); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("petdata: list pets for %s", shelterID))
	}
	return pets, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	return resilience.Do(ctx, c.retry, "petdata"+path, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("pet data API returned %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		return json.Unmarshal(data, out)
	})
}
