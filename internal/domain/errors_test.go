package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := InsufficientStock(2, 5)
	assert.EqualError(t, err, "Insufficient stock. Available: 2, Requested: 5")
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrSaleAlreadyCancelled))

	wrapped := errors.Wrap(ErrBikeNotFound, "sell")
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "BIKE_NOT_FOUND", e.Code)

	_, ok = AsError(errors.New("boom"))
	assert.False(t, ok)
}

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", PaymentCash, true},
		{"cash", PaymentCash, true},
		{"Card", PaymentCard, true},
		{" upi ", PaymentUPI, true},
		{"cheque", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizePaymentMethod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
