package api

import (
	"context"
)

// GetVendorProfile fetches the signed-in vendor's own profile. The
// approval gate calls this on every check - the IsApproved flag is
// never cached beyond a single guard run.
func (c *Client) GetVendorProfile(ctx context.Context) (*VendorProfile, error) {
	var profile VendorProfile
	if err := c.get(ctx, "/vendors/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetVendorStats returns the signed-in vendor's sales summary
func (c *Client) GetVendorStats(ctx context.Context) (*VendorStats, error) {
	var stats VendorStats
	if err := c.get(ctx, "/vendors/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
