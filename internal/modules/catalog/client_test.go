package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientFetchesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/pho-bo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pho-bo",
			"name": "Pho Bo",
			"price": {"amount": 55000, "currency": "VND"},
			"options": [{"name": "extra beef", "price": {"amount": 15000, "currency": "VND"}}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	p, err := c.Product(context.Background(), "pho-bo")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if p.Name != "Pho Bo" || p.Price.Amount != 55000 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if len(p.Options) != 1 || p.Options[0].Price.Amount != 15000 {
		t.Fatalf("unexpected options: %+v", p.Options)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Product(context.Background(), "nope"); err != ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestStaticServesDemoMenu(t *testing.T) {
	s := NewStatic(DemoProducts())
	p, err := s.Product(context.Background(), "banh-mi")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if p.Name != "Banh Mi Thit" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if _, err := s.Product(context.Background(), "missing"); err != ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
