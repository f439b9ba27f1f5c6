package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/example/refurnish/internal/seller"
)

// ProductsClient adapts the product collaborator for the seller dashboard.
type ProductsClient struct {
	client *Client
}

func NewProductsClient(baseURL string, logger *slog.Logger) *ProductsClient {
	return &ProductsClient{client: NewClient("product-backend", baseURL, logger)}
}

func (c *ProductsClient) ListAll(ctx context.Context, token string) ([]seller.Product, error) {
	var products []seller.Product
	if err := c.client.doJSON(ctx, http.MethodGet, "/products", token, nil, &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

func (c *ProductsClient) Create(ctx context.Context, token string, p seller.Product) (seller.Product, error) {
	var created seller.Product
	if err := c.client.doJSON(ctx, http.MethodPost, "/products", token, p, &created); err != nil {
		return seller.Product{}, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

func (c *ProductsClient) Update(ctx context.Context, token string, p seller.Product) (seller.Product, error) {
	var updated seller.Product
	path := "/products/" + url.PathEscape(p.ID)
	if err := c.client.doJSON(ctx, http.MethodPut, path, token, p, &updated); err != nil {
		return seller.Product{}, fmt.Errorf("failed to update product %s: %w", p.ID, err)
	}
	return updated, nil
}
