package port

import "errors"

var (
	// ErrDuplicateUser is returned by UserRepository.CreateUser for a taken username
	ErrDuplicateUser = errors.New("duplicate user")

	// ErrStockConflict is returned by OrderRepository.CreateOrder when stock
	// decrement is enabled and a product no longer has enough units
	ErrStockConflict = errors.New("stock conflict")
)
