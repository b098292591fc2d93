package api

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart           = errors.New("order has no items")
	ErrMissingCustomerName = errors.New("customer name is required")
	ErrInsufficientCash    = errors.New("received amount is less than the order total")
)

// BuildOrder assembles a pending order from a cart. Money arithmetic runs on
// decimals so totals never pick up float drift.
//
// Cash orders require receivedAmount >= total and carry the change; every
// other method records received = total and zero change. Orders are never
// born paid; the kitchen marks payment on delivery.
func BuildOrder(customerName string, items []OrderItem, method PaymentMethod, receivedAmount float64) (Order, error) {
	if customerName == "" {
		return Order{}, ErrMissingCustomerName
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return Order{}, fmt.Errorf("item %q: quantity must be positive", item.Name)
		}
		price := decimal.NewFromFloat(item.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	switch method {
	case PaymentCash, PaymentCard, PaymentPix, PaymentNone:
	default:
		return Order{}, fmt.Errorf("unknown payment method %q", method)
	}

	received := total
	change := decimal.Zero
	if method == PaymentCash {
		received = decimal.NewFromFloat(receivedAmount)
		if received.LessThan(total) {
			return Order{}, ErrInsufficientCash
		}
		change = received.Sub(total)
	}

	totalF, _ := total.Float64()
	receivedF, _ := received.Float64()
	changeF, _ := change.Float64()

	return Order{
		CustomerName:   customerName,
		Status:         StatusPending,
		Total:          totalF,
		Items:          items,
		PaymentMethod:  method,
		ReceivedAmount: receivedF,
		ChangeAmount:   changeF,
		IsPaid:         false,
	}, nil
}
