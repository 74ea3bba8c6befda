// Package api is a client for the energy-summary HTTP API.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"energy_dashboard/internal/model"
)

const (
	PathMeasuredFieldData = "/api/energy-summary-measured-field-data"
	PathModeledFieldData  = "/api/energy-summary-modeled-field-data"
	PathSummaryData       = "/api/energy-summary-data"
)

// StatusError is returned for any non-2xx response. Requests are never retried.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %s", e.Endpoint, e.Status)
}

// Observer receives the outcome of every request. statusCode is 0 when the
// request failed before a response arrived.
type Observer interface {
	ObserveAPIRequest(endpoint string, statusCode int, elapsed time.Duration)
}

type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Bucket   string
	Observer Observer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.HTTP = c }
}

// WithBucket selects a non-default storage bucket on the API side.
func WithBucket(bucket string) Option {
	return func(cl *Client) { cl.Bucket = bucket }
}

func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.Observer = o }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type MeasuredFieldQuery struct {
	Measurement string
	Fields      []string
	Year        string
	Resolution  model.Resolution
	Unit        string
}

type ModeledFieldQuery struct {
	Measurement string
	Fields      []string
	Models      []string
	Year        string
	Resolution  model.Resolution
	Unit        string
}

type SummaryQuery struct {
	MeasuredDataMeasurement string
	ModeledDataMeasurement  string
	Fields                  []string
	Models                  []string
	Year                    string
	Resolution              model.Resolution
	Unit                    string
}

func (c *Client) MeasuredFieldData(ctx context.Context, q MeasuredFieldQuery) (model.Data, error) {
	params := url.Values{}
	params.Set("measurement", q.Measurement)
	params.Set("fields", strings.Join(q.Fields, ","))
	c.setCommon(params, q.Year, q.Resolution, q.Unit)
	return c.fetch(ctx, PathMeasuredFieldData, params)
}

func (c *Client) ModeledFieldData(ctx context.Context, q ModeledFieldQuery) (model.Data, error) {
	params := url.Values{}
	params.Set("measurement", q.Measurement)
	params.Set("fields", strings.Join(q.Fields, ","))
	params.Set("models", strings.Join(q.Models, ","))
	c.setCommon(params, q.Year, q.Resolution, q.Unit)
	return c.fetch(ctx, PathModeledFieldData, params)
}

func (c *Client) SummaryData(ctx context.Context, q SummaryQuery) (model.Data, error) {
	params := url.Values{}
	params.Set("measured_data_measurement", q.MeasuredDataMeasurement)
	params.Set("modeled_data_measurement", q.ModeledDataMeasurement)
	params.Set("fields", strings.Join(q.Fields, ","))
	params.Set("models", strings.Join(q.Models, ","))
	c.setCommon(params, q.Year, q.Resolution, q.Unit)
	return c.fetch(ctx, PathSummaryData, params)
}

func (c *Client) setCommon(params url.Values, year string, res model.Resolution, unit string) {
	if unit == "" {
		unit = model.UnitKilowattHours
	}
	params.Set("year", year)
	params.Set("resolution", string(res))
	params.Set("unit", unit)
	if c.Bucket != "" {
		params.Set("bucket", c.Bucket)
	}
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) (model.Data, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return model.Data{}, err
	}
	data, err := Decode(body)
	if err != nil {
		return model.Data{}, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.BaseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return nil, fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return body, nil
}

func (c *Client) observe(endpoint string, statusCode int, start time.Time) {
	if c.Observer != nil {
		c.Observer.ObserveAPIRequest(endpoint, statusCode, time.Since(start))
	}
}
