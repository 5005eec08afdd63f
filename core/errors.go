package core

import (
	"errors"
	"fmt"

	"github.com/wansing/mvv/auth"
)

var (
	ErrAuth              = auth.ErrAuth
	ErrEmptyPassword     = errors.New("refusing to set empty password")
	ErrExists            = errors.New("already exists")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalid           = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ErrAmountTooLarge is returned if an amount would exceed the range of int64.
var ErrAmountTooLarge = fmt.Errorf("%w: amount too large", ErrInvalid)
