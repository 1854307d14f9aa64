package verify

import (
	"context"
	"errors"
)

var (
	ErrMissingFields    = errors.New("address, signature and message are required")
	ErrInvalidAddress   = errors.New("address is not a valid kaspa address")
	ErrSignatureInvalid = errors.New("signature does not verify for message")
)

// Ledger is the subset of the kaspad client the service needs.
type Ledger interface {
	ValidateAddress(ctx context.Context, address string) (bool, error)
	VerifyMessage(ctx context.Context, address, signature, message string) (bool, error)
}

// Service answers verify requests purely by orchestrating node calls; no
// cryptography happens locally.
type Service struct {
	ledger Ledger
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// Verify returns nil when the node confirms both the address and the
// signature. It short-circuits on the first failure and issues no RPC at
// all for incomplete input.
func (s *Service) Verify(ctx context.Context, address, signature, message string) error {
	if address == "" || signature == "" || message == "" {
		return ErrMissingFields
	}

	valid, err := s.ledger.ValidateAddress(ctx, address)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidAddress
	}

	ok, err := s.ledger.VerifyMessage(ctx, address, signature, message)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSignatureInvalid
	}
	return nil
}
