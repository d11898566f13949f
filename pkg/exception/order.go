package exception

import "errors"

var (
	ErrGateway              = errors.New("order: gateway failure")
	ErrOrderNotFound        = errors.New("order: unknown order")
	ErrOrderUnsupportedKind = errors.New("order: unsupported kind")
	ErrOrderInvalidRequest  = errors.New("order: invalid request")
	ErrOrderEmptyID         = errors.New("order: empty response order id")
	ErrOrderRejected        = errors.New("order: rejected by venue")
)

// Errors injected by the paper venue.
var (
	ErrPaperFault = errors.New("order: paper venue fault")
)
