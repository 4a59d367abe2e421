package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every business error matches exactly one of them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Error is a business rule failure surfaced to the caller.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the error kind, or another *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrBikeNotFound         = newError(ErrNotFound, "BIKE_NOT_FOUND", "Bike not found")
	ErrCustomerNotFound     = newError(ErrNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
	ErrSaleNotFound         = newError(ErrNotFound, "SALE_NOT_FOUND", "Sale not found")
	ErrOprNotFound          = newError(ErrNotFound, "OPR_NOT_FOUND", "Admin not found")
	ErrInsufficientStock    = newError(ErrConflict, "INSUFFICIENT_STOCK", "Insufficient stock")
	ErrSaleAlreadyCancelled = newError(ErrConflict, "SALE_ALREADY_CANCELLED", "Sale is already cancelled")
	ErrBikeSold             = newError(ErrConflict, "BIKE_SOLD", "Sold bike cannot be deleted")
	ErrCustomerExists       = newError(ErrConflict, "CUSTOMER_EXISTS", "Customer already exists")
	ErrInvalidQuantity      = newError(ErrValidation, "INVALID_QUANTITY", "Quantity must be at least 1")
	ErrInvalidPayment       = newError(ErrValidation, "INVALID_PAYMENT_METHOD", "Payment method must be CASH, CARD or UPI")
	ErrInvalidDiscount      = newError(ErrValidation, "INVALID_DISCOUNT", "Discount percentage must be between 0 and 100")
)

// InsufficientStock reports the available and requested quantities.
func InsufficientStock(available, requested int) error {
	return newError(ErrConflict, ErrInsufficientStock.Code,
		fmt.Sprintf("Insufficient stock. Available: %d, Requested: %d", available, requested))
}

// Validation builds an ad hoc validation error.
func Validation(code, msg string) error {
	return newError(ErrValidation, code, msg)
}

// AsError extracts the business error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
