package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/botstore/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Remote reads the catalog from a storefront server.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemote(baseURL string, httpClient *http.Client) *Remote {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

func (r *Remote) List(ctx context.Context) ([]domain.Product, error) {
	var res productsResponse
	if err := r.get(ctx, "/api/v1/products", &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

func (r *Remote) Get(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := r.get(ctx, "/api/v1/products/"+strconv.FormatInt(id, 10), &p)
	return p, err
}

func (r *Remote) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog request %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
