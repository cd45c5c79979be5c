package main

type CreateOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type ValidationErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
