package store

import (
	"context"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// LineItem is one product entry in the cart, keyed by product identity.
// StockQuantity is a snapshot taken when the product was added, used by
// CanAddItem; it is not refreshed against the catalog.
type LineItem struct {
	ProductID     string  `json:"product_id"`
	Title         string  `json:"title"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	VendorID      string  `json:"vendor_id"`
	StockQuantity int     `json:"stock_quantity"`
}

// Cart is the persisted shopping cart slice.
// Invariant: at most one line item per ProductID, every quantity >= 1.
type Cart struct {
	Items []LineItem `json:"items"`
}

// AddItem puts quantity units of the product in the cart, merging into
// the existing line item when the product is already present. No stock
// validation happens here - callers check CanAddItem first when they
// care.
func (s *Store) AddItem(product api.Product, quantity int) {
	if quantity < 1 {
		return
	}

	s.mu.Lock()
	merged := false
	for i := range s.cart.Items {
		if s.cart.Items[i].ProductID == product.ID {
			s.cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.cart.Items = append(s.cart.Items, LineItem{
			ProductID:     product.ID,
			Title:         product.Title,
			UnitPrice:     product.Price,
			Quantity:      quantity,
			VendorID:      product.VendorID,
			StockQuantity: product.StockQuantity,
		})
	}
	s.persistCart(context.Background())
	s.mu.Unlock()

	s.notify(TopicCart)
}

// CanAddItem is the read-only stock predicate: would adding quantity
// units keep the line item within the snapshotted stock?
func (s *Store) CanAddItem(product api.Product, quantity int) bool {
	if quantity < 1 {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	held := 0
	for i := range s.cart.Items {
		if s.cart.Items[i].ProductID == product.ID {
			held = s.cart.Items[i].Quantity
			break
		}
	}
	return held+quantity <= product.StockQuantity
}

// UpdateQuantity sets a line item's quantity. A quantity <= 0 removes
// the line item, making it equivalent to RemoveItem.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(productID)
		return
	}

	s.mu.Lock()
	changed := false
	for i := range s.cart.Items {
		if s.cart.Items[i].ProductID == productID {
			s.cart.Items[i].Quantity = quantity
			changed = true
			break
		}
	}
	if changed {
		s.persistCart(context.Background())
	}
	s.mu.Unlock()

	if changed {
		s.notify(TopicCart)
	}
}

// RemoveItem drops a line item from the cart
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	changed := false
	for i := range s.cart.Items {
		if s.cart.Items[i].ProductID == productID {
			s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
			changed = true
			break
		}
	}
	if changed {
		s.persistCart(context.Background())
	}
	s.mu.Unlock()

	if changed {
		s.notify(TopicCart)
	}
}

// ClearCart empties the cart and its persisted entry
func (s *Store) ClearCart() {
	s.mu.Lock()
	s.cart = Cart{}
	if err := s.storage.Delete(context.Background(), CartKey); err != nil {
		s.logger.Error("Failed to delete persisted cart", map[string]interface{}{
			"operation": "store_clear_cart",
			"entry":     CartKey,
			"error":     err.Error(),
		})
	}
	s.mu.Unlock()

	s.notify(TopicCart)
}

// Items returns a copy of the cart's line items in insertion order
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]LineItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	return items
}

// Count returns the total number of units across all line items
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for i := range s.cart.Items {
		total += s.cart.Items[i].Quantity
	}
	return total
}

// Subtotal returns the cart's price total
func (s *Store) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for i := range s.cart.Items {
		total += s.cart.Items[i].UnitPrice * float64(s.cart.Items[i].Quantity)
	}
	return total
}

// PlaceOrder submits the cart as an order through the gateway and, only
// on success, clears the cart.
func (s *Store) PlaceOrder(ctx context.Context, shippingAddress string) (*api.Order, error) {
	s.mu.RLock()
	gateway := s.gateway
	items := make([]api.OrderItem, 0, len(s.cart.Items))
	for _, item := range s.cart.Items {
		items = append(items, api.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			VendorID:  item.VendorID,
		})
	}
	s.mu.RUnlock()

	if gateway == nil {
		return nil, core.NewClientError("store.PlaceOrder", "order", core.ErrMissingConfiguration)
	}
	if len(items) == 0 {
		return nil, &core.ClientError{
			Op:      "store.PlaceOrder",
			Kind:    "order",
			Message: "cart is empty",
			Err:     core.ErrRequestFailed,
		}
	}

	order, err := gateway.CreateOrder(ctx, api.OrderRequest{
		Items:           items,
		ShippingAddress: shippingAddress,
	})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	s.ClearCart()
	return order, nil
}
