package company

import "errors"

var (
	ErrInsufficientCapacity = errors.New("insufficient factory capacity")
	ErrNegativeLines        = errors.New("line count cannot become negative")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrNoFactories          = errors.New("no factories in country")
	ErrUnknownCountry       = errors.New("unknown country")
	ErrUnknownProduct       = errors.New("unknown product")
	ErrInvalidDecision      = errors.New("invalid sales decision")
)
