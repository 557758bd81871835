package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
)

// CreateAddressRequest adds a delivery address on the customer service.
type CreateAddressRequest struct {
	CityID   int64  `json:"idCiudad"`
	FreeText string `json:"direccion"`
	Alias    string `json:"alias,omitempty"`
}

// customerPayload and friends are the customer service's wire format.
type customerPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Phone string `json:"telefono"`
	Email string `json:"email"`
}

type addressPayload struct {
	ID       int64  `json:"id"`
	CityID   int64  `json:"idCiudad"`
	FreeText string `json:"direccion"`
	Alias    string `json:"alias"`
}

type cityPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// CustomerClient talks to the customer service.
type CustomerClient struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewCustomerClient creates a customer service client.
func NewCustomerClient(baseURL string, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *CustomerClient {
	return &CustomerClient{baseURL: baseURL, http: http, logger: logger}
}

// GetCustomerByExternalID resolves the storefront identity to the customer
// service's profile record.
func (c *CustomerClient) GetCustomerByExternalID(ctx context.Context, customerRef string) (*domain.Customer, error) {
	var payload customerPayload
	path := "/api/clientes/externo/" + url.PathEscape(customerRef)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", customerRef, err)
	}

	return &domain.Customer{
		CustomerID: payload.ID,
		Name:       payload.Name,
		Phone:      payload.Phone,
		Email:      payload.Email,
	}, nil
}

// ListAddresses returns the customer's saved delivery addresses.
func (c *CustomerClient) ListAddresses(ctx context.Context, customerID int64) ([]domain.Address, error) {
	var payloads []addressPayload
	path := fmt.Sprintf("/api/clientes/%d/direcciones", customerID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, fmt.Errorf("list addresses for customer %d: %w", customerID, err)
	}

	addresses := make([]domain.Address, 0, len(payloads))
	for _, p := range payloads {
		addresses = append(addresses, domain.Address{
			AddressID: p.ID,
			CityID:    p.CityID,
			FreeText:  p.FreeText,
			Alias:     p.Alias,
		})
	}
	return addresses, nil
}

// CreateAddress adds a delivery address and returns the stored record.
func (c *CustomerClient) CreateAddress(ctx context.Context, customerID int64, req *CreateAddressRequest) (*domain.Address, error) {
	var payload addressPayload
	path := fmt.Sprintf("/api/clientes/%d/direcciones", customerID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &payload); err != nil {
		return nil, fmt.Errorf("create address for customer %d: %w", customerID, err)
	}

	c.logger.InfoContext(ctx, "address created",
		slog.Int64("customer_id", customerID),
		slog.Int64("address_id", payload.ID),
	)

	return &domain.Address{
		AddressID: payload.ID,
		CityID:    payload.CityID,
		FreeText:  payload.FreeText,
		Alias:     payload.Alias,
	}, nil
}

// ListCities returns the delivery cities the restaurant serves.
func (c *CustomerClient) ListCities(ctx context.Context) ([]domain.City, error) {
	var payloads []cityPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/ciudades", nil, &payloads); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}

	cities := make([]domain.City, 0, len(payloads))
	for _, p := range payloads {
		cities = append(cities, domain.City{CityID: p.ID, Name: p.Name})
	}
	return cities, nil
}

func (c *CustomerClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call customer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, "customer")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
