package transaction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an airtime transaction
type Result string

const (
	ResultPending Result = "P"
	ResultSuccess Result = "S"
	ResultFailure Result = "F"
	ResultUnknown Result = "U"
)

func (r Result) String() string {
	switch r {
	case ResultPending:
		return "pending"
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultUnknown:
		return "unknown"
	default:
		return string(r)
	}
}

// IsFinal reports whether no further transition is allowed.
func (r Result) IsFinal() bool {
	return r == ResultSuccess || r == ResultFailure || r == ResultUnknown
}

// Kind distinguishes the concrete transaction variants
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindRecharge Kind = "recharge"
)

// Transaction holds the fields shared by transfers and recharges.
type Transaction struct {
	ID           int64
	Reference    string
	SIMID        int64
	OperatorName string
	Amount       int64
	Initiated    time.Time
	Result       Result
}

// Transfer is airtime sent from one of our SIMs to a destination number.
type Transfer struct {
	Transaction
	Destination string
}

// Crux is the destination number.
func (t *Transfer) Crux() string { return t.Destination }

// Recharge is airtime loaded onto one of our SIMs with a scratch code.
// Nothing initiates recharges yet.
type Recharge struct {
	Transaction
	Code string
}

// Crux is the recharge code.
func (r *Recharge) Crux() string { return r.Code }

// NewTransfer creates a pending transfer for a command that has just been
// dispatched to the network.
func NewTransfer(simID int64, operatorName, destination string, amount int64, initiated time.Time) (*Transfer, error) {
	if simID <= 0 {
		return nil, fmt.Errorf("invalid sim id: %d", simID)
	}
	if strings.TrimSpace(operatorName) == "" {
		return nil, fmt.Errorf("operator name is required")
	}
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("destination is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %d", amount)
	}
	return &Transfer{
		Transaction: Transaction{
			Reference:    uuid.NewString(),
			SIMID:        simID,
			OperatorName: operatorName,
			Amount:       amount,
			Initiated:    initiated,
			Result:       ResultPending,
		},
		Destination: destination,
	}, nil
}

// Resolve moves a pending transaction to a final result.
func (t *Transaction) Resolve(result Result) error {
	if t.Result != ResultPending {
		return fmt.Errorf("transaction %d already resolved as %s", t.ID, t.Result)
	}
	if !result.IsFinal() {
		return fmt.Errorf("cannot resolve transaction %d to %s", t.ID, result)
	}
	t.Result = result
	return nil
}

// ParseAmount parses a whole, positive amount of airtime units.
func ParseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("amount must be positive: %d", n)
	}
	return n, nil
}
