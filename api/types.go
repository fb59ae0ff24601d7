package api

import "time"

// Role values recognized by the marketplace. Any role outside this set
// is treated as a customer by the access guard.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// User is the signed-in identity returned by the auth endpoints
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Credentials are the login inputs
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration carries the register inputs. Role selects which kind of
// account is created; vendors additionally start unapproved.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// AuthResponse is returned by login and register: the identity plus the
// opaque bearer token echoed on every subsequent request.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ProfileUpdate carries the updatable identity fields
type ProfileUpdate struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Product is a catalog entry
type Product struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price"`
	Category      string  `json:"category,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	VendorID      string  `json:"vendor_id"`
	StockQuantity int     `json:"stock_quantity"`
}

// ProductFilter narrows ListProducts results
type ProductFilter struct {
	Search   string
	Category string
	VendorID string
	Page     int
	Limit    int
}

// ProductList is a paginated catalog page
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// OrderItem is one product line within an order, snapshotted at
// placement time so later catalog edits don't rewrite history.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	VendorID  string  `json:"vendor_id"`
}

// Order is a placed order
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderRequest creates an order from cart contents
type OrderRequest struct {
	Items           []OrderItem `json:"items"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
}

// VendorProfile is the vendor's own account view. IsApproved is the
// asynchronous flag the approval gate checks before granting access to
// vendor views; it is derived state, never cached client-side.
type VendorProfile struct {
	User       User   `json:"user"`
	StoreName  string `json:"store_name,omitempty"`
	IsApproved bool   `json:"isApproved"`
}

// VendorStats summarizes a vendor's sales
type VendorStats struct {
	ProductCount int     `json:"product_count"`
	OrderCount   int     `json:"order_count"`
	Revenue      float64 `json:"revenue"`
}

// VendorSummary is the admin's view of a vendor account
type VendorSummary struct {
	User       User   `json:"user"`
	StoreName  string `json:"store_name,omitempty"`
	IsApproved bool   `json:"isApproved"`
}

// PlatformStats summarizes the marketplace for the admin dashboard
type PlatformStats struct {
	UserCount    int     `json:"user_count"`
	VendorCount  int     `json:"vendor_count"`
	ProductCount int     `json:"product_count"`
	OrderCount   int     `json:"order_count"`
	Revenue      float64 `json:"revenue"`
}
