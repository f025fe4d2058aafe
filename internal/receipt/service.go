package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=receipt
type Repository interface {
	CreateActivity(ctx context.Context, a *Activity) error
	GetActivity(ctx context.Context, id uuid.UUID) (*Activity, error)
	ListActivities(ctx context.Context) ([]*Activity, error)

	CreateReceipt(ctx context.Context, r *Receipt) error
	GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*Receipt, error)
	// RejectReceipt moves an open receipt to rejected; it fails with ErrInvalidTransition otherwise.
	RejectReceipt(ctx context.Context, id uuid.UUID, note, rejectedBy string, at time.Time) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateParams struct {
	ActivityID    uuid.UUID
	ClaimedAmount *decimal.Decimal
	Extracted     Extracted
	ReceiptPath   string
	Status        Status
}

func (s *Service) CreateActivity(ctx context.Context, name string) (*Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("activity name is required")
	}

	a := &Activity{Name: name}
	if err := s.repo.CreateActivity(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) ListActivities(ctx context.Context) ([]*Activity, error) {
	return s.repo.ListActivities(ctx)
}

// Create registers an uploaded payment claim. Only open statuses are accepted on intake.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Receipt, error) {
	status := params.Status
	if status == "" {
		status = StatusSubmitted
	}

	if !status.Open() {
		return nil, fmt.Errorf("%w: cannot create receipt as %s", ErrInvalidTransition, status)
	}

	if _, err := s.repo.GetActivity(ctx, params.ActivityID); err != nil {
		return nil, err
	}

	r := &Receipt{
		ActivityID:    params.ActivityID,
		ClaimedAmount: params.ClaimedAmount,
		Extracted:     params.Extracted,
		ReceiptPath:   params.ReceiptPath,
		Status:        status,
	}
	if err := s.repo.CreateReceipt(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// ListByActivity returns the activity's receipts in submission order.
func (s *Service) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*Receipt, error) {
	if _, err := s.repo.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}

	return s.repo.ListByActivity(ctx, activityID)
}

// Reject is the explicit staff rejection. Rejected receipts are terminal.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, note, rejectedBy string) (*Receipt, error) {
	r, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.Status.Open() {
		return nil, fmt.Errorf("%w: %s receipt cannot be rejected", ErrInvalidTransition, r.Status)
	}

	at := s.now()
	if err := s.repo.RejectReceipt(ctx, id, note, rejectedBy, at); err != nil {
		return nil, err
	}

	r.Status = StatusRejected
	r.VerificationNote = note
	r.VerifiedBy = rejectedBy
	r.UpdatedAt = at

	return r, nil
}
