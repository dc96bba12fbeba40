package data

import (
	"context"
	"fmt"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/store/repositories"
)

// Service handles listings and SIM registration
type Service struct {
	directory     *operator.Directory
	sims          repositories.SIMRepository
	transactions  repositories.TransactionRepository
	notifications repositories.NotificationRepository
}

// NewService creates a new data service
func NewService(directory *operator.Directory, store repositories.Store) *Service {
	return &Service{
		directory:     directory,
		sims:          store.SIMs(),
		transactions:  store.Transactions(),
		notifications: store.Notifications(),
	}
}

func (s *Service) ListOperators() []OperatorView {
	defs := s.directory.All()
	out := make([]OperatorView, 0, len(defs))
	for _, d := range defs {
		out = append(out, NewOperatorView(d))
	}
	return out
}

func (s *Service) ListSIMs(ctx context.Context) ([]SIMView, error) {
	all, err := s.sims.FindAll(ctx)
	if err != nil {
		return nil, &ServiceError{Op: "list_sims", Err: err}
	}
	out := make([]SIMView, 0, len(all))
	for _, v := range all {
		out = append(out, NewSIMView(v))
	}
	return out, nil
}

// RegisterSIM adds a SIM for a configured operator.
func (s *Service) RegisterSIM(ctx context.Context, operatorName, backendID string) (SIMView, error) {
	if _, err := s.directory.FindByShortName(operatorName); err != nil {
		return SIMView{}, err
	}
	v, err := sim.NewSIM(operatorName, backendID)
	if err != nil {
		return SIMView{}, &core.ValidationError{Code: core.MissingField, Field: "backend_id", Message: err.Error()}
	}
	if err := s.sims.Save(ctx, v); err != nil {
		return SIMView{}, &ServiceError{Op: "register_sim", Err: err}
	}
	return NewSIMView(v), nil
}

// ListTransfers retrieves paginated transfers, newest first
func (s *Service) ListTransfers(ctx context.Context, req ListRequest) (*TransferListResponse, error) {
	req.Validate()

	transfers, err := s.transactions.ListTransfers(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, &ServiceError{Op: "list_transfers", Err: err}
	}
	resp := &TransferListResponse{Transfers: make([]TransferView, 0, len(transfers)), Limit: req.Limit, Offset: req.Offset}
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, NewTransferView(t))
	}
	return resp, nil
}

// ListNotifications retrieves paginated notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, req ListRequest) (*NotificationListResponse, error) {
	req.Validate()

	notes, err := s.notifications.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, &ServiceError{Op: "list_notifications", Err: err}
	}
	resp := &NotificationListResponse{Notifications: make([]NotificationView, 0, len(notes)), Limit: req.Limit, Offset: req.Offset}
	for _, n := range notes {
		resp.Notifications = append(resp.Notifications, NewNotificationView(n))
	}
	return resp, nil
}

// ServiceError represents a data service error
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("data service %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
