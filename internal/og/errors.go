package og

import (
	"fmt"

	"dipbot/pkg/exception"
)

// Op names a gateway operation.
type Op string

const (
	OpPlace  Op = "place"
	OpCancel Op = "cancel"
	OpList   Op = "list-open"
	OpQuery  Op = "query"
)

// GatewayError reports a transport or validation failure of one gateway call.
// It matches exception.ErrGateway and the underlying cause with errors.Is.
type GatewayError struct {
	Op     Op
	Symbol string
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway %s %s: %s", e.Op, e.Symbol, e.Reason)
	}
	return fmt.Sprintf("gateway %s %s: %s, err: %v", e.Op, e.Symbol, e.Reason, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{exception.ErrGateway}
	}
	return []error{exception.ErrGateway, e.Err}
}
