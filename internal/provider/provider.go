// Package provider dispatches USSD commands to modem backends.
package provider

import "context"

// Executor sends a USSD command through the modem behind backendID and returns
// the raw reply. Implementations must honour ctx deadlines.
type Executor interface {
	Execute(ctx context.Context, backendID, command string) (string, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, backendID, command string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, backendID, command string) (string, error) {
	return f(ctx, backendID, command)
}
