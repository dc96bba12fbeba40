package operator

import (
	"strings"

	"airtime/internal/core"
)

// BuildBalanceCommand returns the operator's balance USSD string as is.
func BuildBalanceCommand(def *Definition) string {
	return def.BalanceCommand
}

// BuildTransferCommand renders the operator's transfer template.
//
// Destinations must be in local format: the templates and subscriber patterns
// are written for it. An empty pin is rendered as empty for operators that
// do not ask for one.
func BuildTransferCommand(def *Definition, destination, amount, pin string) (string, error) {
	destination = strings.TrimSpace(destination)
	amount = strings.TrimSpace(amount)

	if strings.HasPrefix(destination, "+") {
		return "", &core.ValidationError{
			Code:    core.InternationalPrefix,
			Field:   FieldDestination,
			Message: "destination must not include an international prefix",
		}
	}
	if destination == "" {
		return "", missing(FieldDestination)
	}
	if amount == "" {
		return "", missing(FieldAmount)
	}
	if !isAllDigits(amount) || strings.Trim(amount, "0") == "" {
		return "", &core.ValidationError{
			Code:    core.InvalidAmount,
			Field:   FieldAmount,
			Message: "amount must be a whole, positive number",
		}
	}

	cmd, absent := def.TransferTemplate.Render(map[string]string{
		FieldDestination: destination,
		FieldAmount:      amount,
		FieldPIN:         pin,
	})
	if absent != "" {
		return "", missing(absent)
	}
	return cmd, nil
}

func missing(field string) error {
	return &core.ValidationError{
		Code:    core.MissingField,
		Field:   field,
		Message: "no value supplied",
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
