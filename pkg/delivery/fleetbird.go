package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

const fleetbirdDefaultBaseURL = "https://partners.fleetbird.com/api/v2"

var errFleetbirdKeyRequired = errors.New("fleetbird api key is required")

// FleetbirdClient books deliveries on the Fleetbird courier network.
type FleetbirdClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// FleetbirdOption configures optional client behavior.
type FleetbirdOption func(*FleetbirdClient)

// WithFleetbirdHTTPClient overrides the default HTTP client.
func WithFleetbirdHTTPClient(client *http.Client) FleetbirdOption {
	return func(c *FleetbirdClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithFleetbirdBaseURL overrides the configured API base URL.
func WithFleetbirdBaseURL(baseURL string) FleetbirdOption {
	return func(c *FleetbirdClient) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewFleetbirdClient builds the Fleetbird client given an API key.
func NewFleetbirdClient(apiKey string, timeout time.Duration, opts ...FleetbirdOption) (*FleetbirdClient, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errFleetbirdKeyRequired
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &FleetbirdClient{
		apiKey:     trimmedKey,
		baseURL:    fleetbirdDefaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Provider identifies this client's courier network.
func (c *FleetbirdClient) Provider() enums.DeliveryProvider {
	return enums.DeliveryProviderFleetbird
}

type fleetbirdJobRequest struct {
	ClientReference string             `json:"clientReference"`
	Pickup          fleetbirdStopInput `json:"pickup"`
	Dropoff         fleetbirdStopInput `json:"dropoff"`
	Instructions    string             `json:"instructions,omitempty"`
}

type fleetbirdStopInput struct {
	Address      string `json:"address"`
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`
}

type fleetbirdJobResponse struct {
	JobID       string          `json:"jobId"`
	State       string          `json:"state"`
	TrackingURL string          `json:"trackingUrl"`
	PriceCents  int64           `json:"priceCents"`
	Currency    string          `json:"currency"`
	Raw         json.RawMessage `json:"-"`
}

// CreateDelivery books a courier job and returns the normalized result.
func (c *FleetbirdClient) CreateDelivery(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	body, err := json.Marshal(fleetbirdJobRequest{
		ClientReference: req.Reference,
		Pickup: fleetbirdStopInput{
			Address:      req.PickupAddress,
			ContactName:  req.PickupContact.Name,
			ContactPhone: req.PickupContact.Phone,
		},
		Dropoff: fleetbirdStopInput{
			Address:      req.DropoffAddress,
			ContactName:  req.DropoffContact.Name,
			ContactPhone: req.DropoffContact.Phone,
		},
		Instructions: req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode fleetbird request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build fleetbird request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fleetbird create job")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("fleetbird returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var decoded fleetbirdJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode fleetbird response")
	}
	if decoded.JobID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fleetbird response missing job id")
	}

	return &DispatchResponse{
		DeliveryID:  decoded.JobID,
		Status:      NormalizeFleetbirdState(decoded.State),
		TrackingURL: decoded.TrackingURL,
		Fee:         decimal.NewFromInt(decoded.PriceCents).Div(decimal.NewFromInt(100)),
		Currency:    decoded.Currency,
	}, nil
}

// NormalizeFleetbirdState maps Fleetbird's job states onto the canonical
// delivery states. Unknown values map to pending.
func NormalizeFleetbirdState(raw string) enums.DeliveryStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CREATED", "QUEUED":
		return enums.DeliveryStatusPending
	case "DRIVER_ASSIGNED", "DRIVER_ENROUTE":
		return enums.DeliveryStatusEnRouteToPickup
	case "ARRIVED_AT_STORE":
		return enums.DeliveryStatusAtPickup
	case "OUT_FOR_DELIVERY":
		return enums.DeliveryStatusEnRouteToDropoff
	case "COMPLETED", "DELIVERED":
		return enums.DeliveryStatusDelivered
	case "CANCELLED", "FAILED":
		return enums.DeliveryStatusCanceled
	default:
		return enums.DeliveryStatusPending
	}
}
