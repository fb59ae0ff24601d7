package api

import (
	"context"
)

// CreateOrder places an order from the given line items. The store
// clears the cart only after this succeeds.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.post(ctx, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListMyOrders returns the signed-in customer's order history
func (c *Client) ListMyOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order by ID
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.get(ctx, "/orders/"+id, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	return c.put(ctx, "/orders/"+id+"/cancel", nil, nil)
}

// ListVendorOrders returns orders containing the signed-in vendor's products
func (c *Client) ListVendorOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, "/vendors/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus advances an order through fulfillment (vendor/admin)
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.put(ctx, "/orders/"+id+"/status", body, nil)
}
