package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("invalid checkout input")
	ErrProductNotFound     = errors.New("product not found")
	ErrOutsideDeliveryArea = errors.New("address outside delivery area")
)

// InsufficientStockError aborts the whole checkout; no partial stock
// deduction is ever committed.
type InsufficientStockError struct {
	ProductID string
	Required  int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: need %d, have %d",
		e.ProductID, e.Required, e.Available)
}
