package data

import (
	"time"

	"airtime/internal/domain/notification"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
)

// ListRequest represents a paginated list request
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate validates and normalizes list request parameters
func (req *ListRequest) Validate() {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit > 200 {
		req.Limit = 200
	}
}

type OperatorView struct {
	CountryName       string   `json:"country_name,omitempty"`
	CountryCode       string   `json:"country_code"`
	Short             string   `json:"short"`
	Numeric           string   `json:"numeric"`
	BalanceCommand    string   `json:"balance_command"`
	TransferTemplate  string   `json:"transfer_template"`
	SubscriberPattern string   `json:"subscriber_pattern,omitempty"`
	Identities        []string `json:"identities"`
}

func NewOperatorView(d *operator.Definition) OperatorView {
	v := OperatorView{
		CountryName:      d.CountryName,
		CountryCode:      d.CountryCode,
		Short:            d.Short,
		Numeric:          d.Numeric,
		BalanceCommand:   d.BalanceCommand,
		TransferTemplate: d.TransferTemplate.String(),
		Identities:       d.Identities,
	}
	if d.SubscriberPattern != nil {
		v.SubscriberPattern = d.SubscriberPattern.String()
	}
	return v
}

type SIMView struct {
	ID        int64     `json:"id"`
	Operator  string    `json:"operator"`
	BackendID string    `json:"backend_id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSIMView(s *sim.SIM) SIMView {
	return SIMView{ID: s.ID, Operator: s.OperatorName, BackendID: s.BackendID, Balance: s.Balance, UpdatedAt: s.UpdatedAt}
}

type TransferView struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	SIMID       int64     `json:"sim_id"`
	Operator    string    `json:"operator"`
	Destination string    `json:"destination"`
	Amount      int64     `json:"amount"`
	Result      string    `json:"result"`
	Initiated   time.Time `json:"initiated"`
}

func NewTransferView(t *transaction.Transfer) TransferView {
	return TransferView{
		ID:          t.ID,
		Reference:   t.Reference,
		SIMID:       t.SIMID,
		Operator:    t.OperatorName,
		Destination: t.Destination,
		Amount:      t.Amount,
		Result:      t.Result.String(),
		Initiated:   t.Initiated,
	}
}

type NotificationView struct {
	ID            int64     `json:"id"`
	SIMID         int64     `json:"sim_id"`
	Identity      string    `json:"identity"`
	Text          string    `json:"text"`
	Type          string    `json:"type"`
	TransactionID *int64    `json:"transaction_id,omitempty"`
	Received      time.Time `json:"received"`
}

func NewNotificationView(n *notification.Notification) NotificationView {
	return NotificationView{
		ID:            n.ID,
		SIMID:         n.SIMID,
		Identity:      n.Identity,
		Text:          n.Text,
		Type:          n.Type.String(),
		TransactionID: n.TransactionID,
		Received:      n.Received,
	}
}

// TransferListResponse represents paginated transfer data
type TransferListResponse struct {
	Transfers []TransferView `json:"transfers"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

// NotificationListResponse represents paginated notification data
type NotificationListResponse struct {
	Notifications []NotificationView `json:"notifications"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}
