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

const (
	swiftdropDefaultBaseURL = "https://api.swiftdrop.io/v1"

	errorBodyReadLimit int64 = 2048
)

var errSwiftdropKeyRequired = errors.New("swiftdrop api key is required")

// SwiftdropClient books deliveries on the Swiftdrop courier network.
type SwiftdropClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// SwiftdropOption configures optional client behavior.
type SwiftdropOption func(*SwiftdropClient)

// WithSwiftdropHTTPClient overrides the default HTTP client.
func WithSwiftdropHTTPClient(client *http.Client) SwiftdropOption {
	return func(c *SwiftdropClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSwiftdropBaseURL overrides the configured API base URL.
func WithSwiftdropBaseURL(baseURL string) SwiftdropOption {
	return func(c *SwiftdropClient) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewSwiftdropClient builds the Swiftdrop client given an API key.
func NewSwiftdropClient(apiKey string, timeout time.Duration, opts ...SwiftdropOption) (*SwiftdropClient, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errSwiftdropKeyRequired
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &SwiftdropClient{
		apiKey:     trimmedKey,
		baseURL:    swiftdropDefaultBaseURL,
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
func (c *SwiftdropClient) Provider() enums.DeliveryProvider {
	return enums.DeliveryProviderSwiftdrop
}

type swiftdropCreateRequest struct {
	ExternalReference string `json:"external_reference"`
	PickupAddress     string `json:"pickup_address"`
	PickupName        string `json:"pickup_name"`
	PickupPhone       string `json:"pickup_phone"`
	DropoffAddress    string `json:"dropoff_address"`
	DropoffName       string `json:"dropoff_name"`
	DropoffPhone      string `json:"dropoff_phone"`
	Notes             string `json:"notes,omitempty"`
}

type swiftdropCreateResponse struct {
	DeliveryID  string `json:"delivery_id"`
	Status      string `json:"status"`
	TrackingURL string `json:"tracking_url"`
	Fee         struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"fee"`
}

// CreateDelivery books a courier job and returns the normalized result.
func (c *SwiftdropClient) CreateDelivery(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	body, err := json.Marshal(swiftdropCreateRequest{
		ExternalReference: req.Reference,
		PickupAddress:     req.PickupAddress,
		PickupName:        req.PickupContact.Name,
		PickupPhone:       req.PickupContact.Phone,
		DropoffAddress:    req.DropoffAddress,
		DropoffName:       req.DropoffContact.Name,
		DropoffPhone:      req.DropoffContact.Phone,
		Notes:             req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode swiftdrop request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deliveries", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build swiftdrop request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "swiftdrop create delivery")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("swiftdrop returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var decoded swiftdropCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode swiftdrop response")
	}
	if decoded.DeliveryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "swiftdrop response missing delivery id")
	}

	fee := decimal.Zero
	if decoded.Fee.Amount != "" {
		if parsed, err := decimal.NewFromString(decoded.Fee.Amount); err == nil {
			fee = parsed
		}
	}

	return &DispatchResponse{
		DeliveryID:  decoded.DeliveryID,
		Status:      NormalizeSwiftdropStatus(decoded.Status),
		TrackingURL: decoded.TrackingURL,
		Fee:         fee,
		Currency:    decoded.Fee.Currency,
	}, nil
}

// NormalizeSwiftdropStatus maps Swiftdrop's status vocabulary onto the
// canonical delivery states. Unknown values map to pending rather than
// erroring so new provider statuses degrade gracefully.
func NormalizeSwiftdropStatus(raw string) enums.DeliveryStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "created", "accepted":
		return enums.DeliveryStatusPending
	case "pickup_enroute", "courier_assigned":
		return enums.DeliveryStatusEnRouteToPickup
	case "pickup_arrived", "at_pickup":
		return enums.DeliveryStatusAtPickup
	case "dropoff_enroute", "picked_up":
		return enums.DeliveryStatusEnRouteToDropoff
	case "delivered":
		return enums.DeliveryStatusDelivered
	case "canceled", "cancelled", "returned":
		return enums.DeliveryStatusCanceled
	default:
		return enums.DeliveryStatusPending
	}
}
