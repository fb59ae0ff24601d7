package api

import (
	"context"
	"net/url"
	"strconv"
)

// ListProducts returns a catalog page, optionally narrowed by filter
func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (*ProductList, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.VendorID != "" {
		query.Set("vendor", filter.VendorID)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var list ProductList
	if err := c.get(ctx, "/products", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetProduct fetches one catalog entry by ID
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.get(ctx, "/products/"+id, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct lists a new product under the signed-in vendor
func (c *Client) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	var created Product
	if err := c.post(ctx, "/products", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProduct replaces a product's listing fields
func (c *Client) UpdateProduct(ctx context.Context, id string, product Product) (*Product, error) {
	var updated Product
	if err := c.put(ctx, "/products/"+id, product, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct removes a listing
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.delete(ctx, "/products/"+id)
}
