package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/convert"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
	"github.com/grandtrade/gta/internal/secrets"
)

const (
	AlpacaPaperEndpoint  = "https://paper-api.alpaca.markets"
	defaultAlpacaTimeout = 30
)

const alpacaSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["alpaca", "apca"]},
    "env": {"type": "string"},
    "endpoint": {"type": "string", "pattern": "^https?://"},
    "timeout": {"type": "string", "pattern": "^\\s*[0-9]+\\s*$"}
  }
}`

// Alpaca is the Alpaca Markets broker. Only configuration is wired; trading
// calls return ErrNotImplemented.
type Alpaca struct {
	adapter.Identity

	endpoint    string
	timeout     time.Duration
	credentials *secrets.Credentials
}

func alpacaDescriptor() adapter.Descriptor[Broker] {
	return adapter.Descriptor[Broker]{
		Name:           "alpaca",
		TypeNames:      []string{"alpaca", "apca"},
		CredentialKeys: []string{"key_id", "secret_key"},
		Schema:         alpacaSchema,
		Description:    "Alpaca Markets REST API",
		Load:           loadAlpaca,
	}
}

func loadAlpaca(in adapter.Input) (Broker, error) {
	timeout, err := convert.SectionIntOr(in.Section, "timeout", defaultAlpacaTimeout)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, gtaerrors.SectionError{
			Section: in.Section.ID(),
			Key:     "timeout",
			Err:     fmt.Errorf("%w: timeout %d is not positive", gtaerrors.ErrCast, timeout),
		}
	}

	a := &Alpaca{
		Identity:    in.Identity,
		endpoint:    convert.SectionStringOr(in.Section, "endpoint", AlpacaPaperEndpoint),
		timeout:     time.Duration(timeout) * time.Second,
		credentials: in.Credentials,
	}

	if in.Logger != nil && in.Logger.DebugEnabled() {
		keyID, err := a.KeyID()
		if err != nil {
			return nil, err
		}
		in.Logger.Debug("Alpaca %s with key %s, timeout %s", a.endpoint, logging.Secret(keyID), a.timeout)
	}
	return a, nil
}

func (a *Alpaca) Endpoint() string       { return a.endpoint }
func (a *Alpaca) Timeout() time.Duration { return a.timeout }

// KeyID reveals the API key id.
func (a *Alpaca) KeyID() (string, error) {
	id, _, err := a.credentials.Reveal("key_id")
	return id, err
}

func (a *Alpaca) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if err := req.Validate(); err != nil {
		return OrderAck{}, err
	}
	return OrderAck{}, fmt.Errorf("alpaca place order: %w", ErrNotImplemented)
}

func (a *Alpaca) CancelOrder(ctx context.Context, orderID string) error {
	return fmt.Errorf("alpaca cancel order: %w", ErrNotImplemented)
}

// Close wipes the API credentials.
func (a *Alpaca) Close() error {
	a.credentials.Destroy()
	return nil
}
