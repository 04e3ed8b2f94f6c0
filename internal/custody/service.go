package custody

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/types"
)

// DefaultTimeout bounds every store call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// PayloadValidator checks a run state payload before it is written.
type PayloadValidator interface {
	ValidatePayload(payload any) error
}

// Service exposes the custody operations over a Store.
type Service struct {
	store     Store
	guard     *Guard
	timeout   time.Duration
	logger    *log.Logger
	validator PayloadValidator
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the per-call store timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for denials and store failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPayloadValidator enables schema validation of appended state.
func WithPayloadValidator(v PayloadValidator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// New returns a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guard = &Guard{store: store}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Guard returns the ownership guard.
func (s *Service) Guard() *Guard {
	return s.guard
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// finish makes sure only categorized errors leave the service and logs failures.
// subject is the run, document or role the call targeted; payloads are never logged.
func (s *Service) finish(op string, subject uuid.UUID, err error, fallback apperr.Code) error {
	if err == nil {
		return nil
	}
	err = apperr.Ensure(op, err, fallback)
	e, _ := apperr.As(err)
	switch e.Code {
	case apperr.CodeNotOwned:
		s.logger.Printf("WARN: %s denied for %s", op, subject)
	case apperr.CodeWriteFailed, apperr.CodeReadFailed, apperr.CodeInternal:
		s.logger.Printf("ERROR: %s failed for %s: %v (retryable=%t)", op, subject, e.Cause, e.Retryable)
	}
	return err
}

func requireID(op, what string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.InvalidRequest(op, what+" is required")
	}
	return nil
}

func invalid(op string, err error) error {
	return apperr.InvalidRequest(op, err.Error())
}

func validateStruct(op string, v any) error {
	if err := types.Validate(v); err != nil {
		return invalid(op, err)
	}
	return nil
}
