package blacklist

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/blacklist-api/internal/domain"
)

// CreateInput carries the caller-supplied fields of a new entry.
type CreateInput struct {
	Email         string
	AppUUID       string
	BlockedReason string
	RequestIP     string
	RequestTime   *time.Time
}

// Service implements blacklist business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a blacklist service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates in and stores exactly one new entry. Returns
// ErrMissingFields without touching the repository when a required field is
// blank.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.BlacklistEntry, error) {
	entry := &domain.BlacklistEntry{
		ID:            uuid.New().String(),
		Email:         strings.TrimSpace(in.Email),
		AppUUID:       strings.TrimSpace(in.AppUUID),
		BlockedReason: strings.TrimSpace(in.BlockedReason),
		RequestIP:     strings.TrimSpace(in.RequestIP),
		CreatedAt:     s.now().UTC(),
	}
	if !entry.HasRequiredFields() {
		return nil, ErrMissingFields
	}
	if in.RequestTime != nil {
		t := in.RequestTime.UTC()
		entry.RequestTime = &t
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Check returns the entry blacklisting email, or ErrNotFound.
func (s *Service) Check(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByEmail(ctx, email)
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
