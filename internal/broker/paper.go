package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/convert"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
)

var defaultStartingCash = decimal.NewFromInt(100000)

var ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrInvalidOrder)

const paperSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["paper", "sim", "simulator"]},
    "env": {"type": "string"},
    "starting_cash": {"type": "string", "pattern": "^\\s*[0-9]+(\\.[0-9]+)?\\s*$"}
  }
}`

// Paper is an in-process simulated broker. It acknowledges orders without
// executing them; limit buys reserve cash until cancelled.
type Paper struct {
	adapter.Identity

	startingCash decimal.Decimal
	logger       *logging.Logger

	mu     sync.Mutex
	cash   decimal.Decimal
	orders map[string]OrderAck
	holds  map[string]decimal.Decimal
}

func paperDescriptor() adapter.Descriptor[Broker] {
	return adapter.Descriptor[Broker]{
		Name:        "paper",
		TypeNames:   []string{"paper", "sim", "simulator"},
		Schema:      paperSchema,
		Description: "Simulated broker, no credentials",
		Load:        loadPaper,
	}
}

func loadPaper(in adapter.Input) (Broker, error) {
	start, err := convert.SectionDecimalOr(in.Section, "starting_cash", defaultStartingCash)
	if err != nil {
		return nil, err
	}
	if start.IsNegative() {
		return nil, gtaerrors.SectionError{
			Section: in.Section.ID(),
			Key:     "starting_cash",
			Err:     fmt.Errorf("%w: starting_cash %s is negative", gtaerrors.ErrCast, start),
		}
	}

	logger := in.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Paper{
		Identity:     in.Identity,
		startingCash: start,
		logger:       logger,
		cash:         start,
		orders:       make(map[string]OrderAck),
		holds:        make(map[string]decimal.Decimal),
	}, nil
}

// StartingCash is the configured opening balance.
func (p *Paper) StartingCash() decimal.Decimal { return p.startingCash }

// Cash is the balance not reserved by open limit buys.
func (p *Paper) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// OpenOrders returns the number of acknowledged, uncancelled orders.
func (p *Paper) OpenOrders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

func (p *Paper) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return OrderAck{}, err
	}
	if err := req.Validate(); err != nil {
		return OrderAck{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hold := decimal.Zero
	if req.Side == Buy && !req.IsMarket() {
		hold = req.Quantity.Mul(req.LimitPrice)
		if hold.GreaterThan(p.cash) {
			return OrderAck{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, hold.StringFixed(2), p.cash.StringFixed(2))
		}
	}

	ack := OrderAck{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Status:    "accepted",
		Submitted: time.Now().UTC(),
	}
	p.orders[ack.ID] = ack
	if hold.IsPositive() {
		p.holds[ack.ID] = hold
		p.cash = p.cash.Sub(hold)
	}

	p.logger.Debug("Paper %s %s %s accepted as %s", req.Side, req.Quantity, req.Symbol, ack.ID)
	return ack, nil
}

func (p *Paper) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[orderID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	delete(p.orders, orderID)
	if hold, ok := p.holds[orderID]; ok {
		p.cash = p.cash.Add(hold)
		delete(p.holds, orderID)
	}
	return nil
}

func (p *Paper) Close() error {
	return nil
}
