package service

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOutOfStock      = errors.New("out of stock")
	ErrNotInCart       = errors.New("product not in cart")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrUnauthenticated = errors.New("authentication required")

	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
