package models

import "errors"

var (
	// ErrAccountNotFound is returned when an account id does not resolve to a stored account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTransfer is returned for transfers the ledger can never apply
	// (non-positive amount, sender equal to recipient).
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrInvalidAccount is returned when an account cannot be created as requested.
	ErrInvalidAccount = errors.New("invalid account")
)
