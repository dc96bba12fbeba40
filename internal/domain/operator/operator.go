package operator

import (
	"regexp"

	"airtime/internal/domain/notification"
)

// Definition describes how to talk to one mobile network operator.
// Definitions are immutable once the directory is loaded.
type Definition struct {
	CountryName       string
	CountryCode       string
	Short             string // name reported by AT+COPS?, unique
	Numeric           string // MCC/MNC, globally unique
	BalanceCommand    string
	TransferTemplate  Template
	SubscriberPattern *regexp.Regexp
	Identities        []string
	Rules             []notification.Rule
}

// HasIdentity reports whether identity is one the operator sends notifications from.
func (d *Definition) HasIdentity(identity string) bool {
	for _, id := range d.Identities {
		if id == identity {
			return true
		}
	}
	return false
}

// MatchesSubscriber reports whether number belongs to the operator's number
// blocks. Definitions without a pattern match nothing.
func (d *Definition) MatchesSubscriber(number string) bool {
	if d.SubscriberPattern == nil {
		return false
	}
	return d.SubscriberPattern.MatchString(number)
}

// Classify classifies a notification text with the operator's prefix table.
func (d *Definition) Classify(text string) notification.Type {
	return notification.Classify(d.Rules, text)
}
