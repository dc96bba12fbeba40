package sim

import (
	"fmt"
	"strings"
	"time"
)

// SIM is a physical line in a modem. Balance is free text because operators
// do not always answer balance queries with a number.
type SIM struct {
	ID           int64
	OperatorName string
	BackendID    string
	Balance      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSIM creates a SIM attached to an operator and a modem backend
func NewSIM(operatorName, backendID string) (*SIM, error) {
	operatorName = strings.TrimSpace(operatorName)
	backendID = strings.TrimSpace(backendID)
	if operatorName == "" {
		return nil, fmt.Errorf("operator name is required")
	}
	if backendID == "" {
		return nil, fmt.Errorf("backend id is required")
	}
	now := time.Now()
	return &SIM{
		OperatorName: operatorName,
		BackendID:    backendID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SetBalance records the latest balance reading. Last write wins.
func (s *SIM) SetBalance(balance string) {
	s.Balance = balance
	s.UpdatedAt = time.Now()
}
