// Package broker holds the broker adapters that can be named by `type` in
// brokers.conf.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandtrade/gta/internal/adapter"
)

// ConfigFile is the broker config file name inside the conf dir.
const ConfigFile = "brokers.conf"

var (
	// ErrNotImplemented is returned by trading calls a broker does not
	// support yet.
	ErrNotImplemented = errors.New("not implemented")
	ErrInvalidOrder   = errors.New("invalid order")
	ErrUnknownOrder   = errors.New("unknown order")
)

// Broker is a loaded broker adapter.
type Broker interface {
	adapter.Instance
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderRequest describes an order. A zero LimitPrice means a market order.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
}

// Validate checks the fields every broker needs.
func (r OrderRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if r.Side != Buy && r.Side != Sell {
		return fmt.Errorf("%w: side must be %q or %q, got %q", ErrInvalidOrder, Buy, Sell, r.Side)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, r.Quantity)
	}
	if r.LimitPrice.IsNegative() {
		return fmt.Errorf("%w: limit price must not be negative, got %s", ErrInvalidOrder, r.LimitPrice)
	}
	return nil
}

// IsMarket reports whether the order has no limit price.
func (r OrderRequest) IsMarket() bool {
	return r.LimitPrice.IsZero()
}

// OrderAck is a broker's acceptance of an order.
type OrderAck struct {
	ID        string
	Symbol    string
	Side      Side
	Quantity  decimal.Decimal
	Status    string
	Submitted time.Time
}

// NewRegistry returns a registry with every built-in broker.
func NewRegistry() *adapter.Registry[Broker] {
	r := adapter.NewRegistry[Broker](adapter.KindBroker)
	r.MustRegister(alpacaDescriptor())
	r.MustRegister(paperDescriptor())
	return r
}
