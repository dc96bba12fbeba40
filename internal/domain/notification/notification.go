package notification

import (
	"fmt"
	"strings"
	"time"

	"airtime/internal/domain/transaction"
)

// Type classifies an operator notification
type Type string

const (
	TypeUnknown         Type = "U"
	TypeReceivedAirtime Type = "R"
	TypeTransferSuccess Type = "S"
	TypeTransferFailure Type = "F"
	TypeBalance         Type = "B"
)

// ParseType accepts both the stored codes and readable names.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u", "unknown":
		return TypeUnknown, nil
	case "r", "received", "received_airtime":
		return TypeReceivedAirtime, nil
	case "s", "success", "transfer_success":
		return TypeTransferSuccess, nil
	case "f", "failure", "transfer_failure":
		return TypeTransferFailure, nil
	case "b", "balance":
		return TypeBalance, nil
	}
	return "", fmt.Errorf("unknown notification type %q", s)
}

func (t Type) String() string {
	switch t {
	case TypeReceivedAirtime:
		return "received_airtime"
	case TypeTransferSuccess:
		return "transfer_success"
	case TypeTransferFailure:
		return "transfer_failure"
	case TypeBalance:
		return "balance"
	default:
		return "unknown"
	}
}

// TransferResult is the result a notification of this type settles a pending
// transfer to. ok is false for types that must leave the transfer pending.
func (t Type) TransferResult() (result transaction.Result, ok bool) {
	switch t {
	case TypeTransferSuccess:
		return transaction.ResultSuccess, true
	case TypeTransferFailure:
		return transaction.ResultFailure, true
	}
	return "", false
}

// IdentityUSSD marks notifications recorded from our own USSD sessions.
const IdentityUSSD = "USSD"

// Notification is a message received from an operator, or a USSD reply kept
// for history. TransactionID is set at most once.
type Notification struct {
	ID            int64
	Text          string
	Identity      string
	Type          Type
	SIMID         int64
	TransactionID *int64
	Received      time.Time
}

// New creates an unlinked notification
func New(simID int64, identity, text string, typ Type, received time.Time) *Notification {
	return &Notification{
		Text:     text,
		Identity: identity,
		Type:     typ,
		SIMID:    simID,
		Received: received,
	}
}

// Link attaches the notification to the transaction it resolves.
func (n *Notification) Link(transactionID int64) error {
	if n.TransactionID != nil {
		return fmt.Errorf("notification %d already linked to transaction %d", n.ID, *n.TransactionID)
	}
	n.TransactionID = &transactionID
	return nil
}
