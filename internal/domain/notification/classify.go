package notification

import "strings"

// Rule maps a literal message prefix to a notification type.
type Rule struct {
	Prefix string `json:"Prefix" yaml:"Prefix"`
	Type   Type   `json:"Type" yaml:"Type"`
}

// DefaultRules are the Orange SN prefixes. Other operators number their
// notifications differently and should carry their own table.
var DefaultRules = []Rule{
	{Prefix: "202", Type: TypeReceivedAirtime},
	{Prefix: "2049", Type: TypeTransferFailure},
	{Prefix: "201", Type: TypeTransferSuccess},
}

// Classify returns the type of the first rule whose prefix text starts with.
// Rules are evaluated in order.
func Classify(rules []Rule, text string) Type {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	for _, r := range rules {
		if r.Prefix != "" && strings.HasPrefix(text, r.Prefix) {
			return r.Type
		}
	}
	return TypeUnknown
}
