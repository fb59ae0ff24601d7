package api

import (
	"context"
)

// ListVendors returns every vendor account for the admin dashboard
func (c *Client) ListVendors(ctx context.Context) ([]VendorSummary, error) {
	var vendors []VendorSummary
	if err := c.get(ctx, "/admin/vendors", nil, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

// ApproveVendor flips a vendor account to approved
func (c *Client) ApproveVendor(ctx context.Context, vendorID string) error {
	return c.put(ctx, "/admin/vendors/"+vendorID+"/approve", nil, nil)
}

// ListUsers returns every user account (admin only)
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetPlatformStats returns marketplace-wide totals for the admin dashboard
func (c *Client) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	var stats PlatformStats
	if err := c.get(ctx, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
