package comanda

// Notification is the fire-and-forget completion announcement published
// when an order reaches done. Delivery is best effort; losing one never
// changes the order's outcome.
type Notification struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}
