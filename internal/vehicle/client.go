// Package vehicle decodes VINs and looks up safety recalls through the
// public NHTSA APIs.
package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultVPICURL    = "https://vpic.nhtsa.dot.gov/api"
	DefaultRecallsURL = "https://api.nhtsa.gov"
)

// Client talks to the vPIC decoder and the recalls API.
type Client struct {
	VPICURL    string
	RecallsURL string
	httpClient *http.Client
}

// NewClient creates a Client. Empty URLs fall back to the public endpoints.
func NewClient(vpicURL, recallsURL string, timeout time.Duration) *Client {
	if vpicURL == "" {
		vpicURL = DefaultVPICURL
	}
	if recallsURL == "" {
		recallsURL = DefaultRecallsURL
	}
	return &Client{
		VPICURL:    strings.TrimSuffix(vpicURL, "/"),
		RecallsURL: strings.TrimSuffix(recallsURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Decode resolves a VIN into vehicle specs. Recalls are left empty.
func (c *Client) Decode(ctx context.Context, vin string) (*Specs, error) {
	vin = strings.TrimSpace(vin)
	if vin == "" {
		return nil, fmt.Errorf("vin is empty")
	}

	decodeURL := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", c.VPICURL, url.PathEscape(vin))

	var resp decodeResponse
	if err := c.getJSON(ctx, decodeURL, &resp); err != nil {
		return nil, fmt.Errorf("decode vin: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no results found for this VIN")
	}

	raw := resp.Results[0]
	year, _ := strconv.Atoi(raw.ModelYear)

	specs := &Specs{
		VIN:          raw.VIN,
		Year:         year,
		Make:         raw.Make,
		Model:        raw.Model,
		Trim:         raw.Trim,
		Series:       raw.Series,
		BodyClass:    raw.BodyClass,
		VehicleType:  raw.VehicleType,
		DriveType:    raw.DriveType,
		Transmission: raw.TransmissionStyle,
		Engine: Engine{
			Cylinders:     raw.EngineCylinders,
			DisplacementL: raw.DisplacementL,
			Configuration: raw.EngineConfiguration,
			FuelType:      raw.FuelTypePrimary,
			Horsepower:    raw.EngineHP,
		},
		Manufacturer: raw.Manufacturer,
		PlantCountry: raw.PlantCountry,
		Recalls:      []Recall{},
	}
	if specs.VIN == "" {
		specs.VIN = vin
	}

	// vPIC reports partial decodes as a comma-separated list of codes, "0"
	// alone meaning a clean decode.
	if code := strings.TrimSpace(raw.ErrorCode); code != "" && code != "0" {
		specs.DecodeWarning = raw.ErrorText
		if specs.DecodeWarning == "" {
			specs.DecodeWarning = "vPIC error code " + code
		}
	}

	return specs, nil
}

// Recalls lists the recall campaigns filed for a make, model and model year.
func (c *Client) Recalls(ctx context.Context, vehicleMake, model string, year int) ([]Recall, error) {
	q := url.Values{}
	q.Set("make", vehicleMake)
	q.Set("model", model)
	q.Set("modelYear", strconv.Itoa(year))
	recallsURL := c.RecallsURL + "/recalls/recallsByVehicle?" + q.Encode()

	var resp recallsResponse
	if err := c.getJSON(ctx, recallsURL, &resp); err != nil {
		return nil, fmt.Errorf("lookup recalls: %w", err)
	}

	recalls := make([]Recall, 0, len(resp.Results))
	for _, r := range resp.Results {
		recalls = append(recalls, Recall{
			Campaign:    r.NHTSACampaignNumber,
			Component:   r.Component,
			Summary:     r.Summary,
			Consequence: r.Consequence,
			Remedy:      r.Remedy,
			ReportDate:  r.ReportReceivedDate,
		})
	}
	return recalls, nil
}

// Audit decodes the VIN and attaches recalls. A failed recall lookup does not
// fail the audit; it is reported in RecallsError.
func (c *Client) Audit(ctx context.Context, vin string) (*Specs, error) {
	specs, err := c.Decode(ctx, vin)
	if err != nil {
		return nil, err
	}

	if specs.Make == "" || specs.Model == "" || specs.Year == 0 {
		return specs, nil
	}

	recalls, err := c.Recalls(ctx, specs.Make, specs.Model, specs.Year)
	if err != nil {
		specs.RecallsError = err.Error()
		return specs, nil
	}
	specs.Recalls = recalls
	return specs, nil
}

func (c *Client) getJSON(ctx context.Context, target string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse API response: %w", err)
	}
	return nil
}
