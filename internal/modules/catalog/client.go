// README: Product catalog lookups; HTTP client for the catalog service plus a demo fallback.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodfast/internal/modules/order"
	"foodfast/internal/types"
)

var ErrProductNotFound = errors.New("product not found")

// Client resolves products from the catalog service over HTTP. It satisfies
// the order service's pricing dependency.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type productResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Image   string           `json:"image"`
	Price   types.Money      `json:"price"`
	Options []optionResponse `json:"options"`
}

type optionResponse struct {
	Name  string      `json:"name"`
	Price types.Money `json:"price"`
}

func (c *Client) Product(ctx context.Context, id types.ID) (*order.Product, error) {
	u := c.baseURL + "/api/products/" + url.PathEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("catalog response: %w", err)
	}
	p := &order.Product{
		ID:    types.ID(body.ID),
		Name:  body.Name,
		Image: body.Image,
		Price: body.Price,
	}
	for _, o := range body.Options {
		p.Options = append(p.Options, order.ItemOption{Name: o.Name, Price: o.Price})
	}
	return p, nil
}

// Static serves a fixed product set. Used when no catalog service is
// configured, so the whole ordering flow still works out of the box.
type Static struct {
	products map[types.ID]*order.Product
}

func NewStatic(products []*order.Product) *Static {
	m := make(map[types.ID]*order.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &Static{products: m}
}

func (s *Static) Product(_ context.Context, id types.ID) (*order.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// DemoProducts is the seed menu for the zero-config setup.
func DemoProducts() []*order.Product {
	vnd := func(amount int64) types.Money { return types.Money{Amount: amount, Currency: "VND"} }
	return []*order.Product{
		{
			ID:    "pho-bo",
			Name:  "Pho Bo",
			Price: vnd(55000),
			Options: []order.ItemOption{
				{Name: "extra beef", Price: vnd(15000)},
				{Name: "extra noodles", Price: vnd(8000)},
			},
		},
		{
			ID:    "banh-mi",
			Name:  "Banh Mi Thit",
			Price: vnd(25000),
			Options: []order.ItemOption{
				{Name: "extra pate", Price: vnd(5000)},
			},
		},
		{
			ID:    "ca-phe-sua",
			Name:  "Ca Phe Sua Da",
			Price: vnd(29000),
		},
		{
			ID:    "tra-da",
			Name:  "Tra Da",
			Price: vnd(12000),
		},
	}
}
