package exception

import "errors"

var (
	// ErrInvalidSymbol is returned when symbol metadata is missing or unusable.
	ErrInvalidSymbol = errors.New("symbol: invalid symbol")
)
