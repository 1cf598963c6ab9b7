package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
)

// Product is the slice of the catalog's product record the order core
// needs: pricing and ownership. Stock lives in the local ledger, not here.
type Product struct {
	ID      string  `json:"productId"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	StoreID string  `json:"storeId"`
}

type Store struct {
	ID      string `json:"storeId"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Client talks to the catalog service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/products/%s", c.baseURL, productID),
		fmt.Sprintf("product %s", productID), &p)
	if err != nil {
		return Product{}, err
	}
	if p.ID == "" {
		p.ID = productID
	}
	return p, nil
}

func (c *Client) GetStore(ctx context.Context, storeID string) (Store, error) {
	var s Store
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/stores/%s", c.baseURL, storeID),
		fmt.Sprintf("store %s", storeID), &s)
	if err != nil {
		return Store{}, err
	}
	if s.ID == "" {
		s.ID = storeID
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, url, what string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build %s request", what)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, err, "catalog: fetch %s", what)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, "%s not found", what)
	case resp.StatusCode != http.StatusOK:
		return apperr.New(apperr.KindUpstream, "catalog: fetch %s: status %d", what, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, err, "catalog: decode %s", what)
	}
	return nil
}
