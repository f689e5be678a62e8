// Package catalog holds the business rules for brands, catalogs, categories, products,
// attribute schemas, variants and images. Every operation re-derives ownership through
// the ownership resolver before touching the store.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
)

// ValidationError is a domain rule violation the caller can fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Service implements the entity operations.
type Service struct {
	store    store.Store
	owners   *ownership.Resolver
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService wires a Service. m may be nil.
func NewService(st store.Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		owners:   ownership.NewResolver(st),
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// Resolver exposes the ownership resolver for callers outside the entity layer.
func (s *Service) Resolver() *ownership.Resolver { return s.owners }

// Store exposes the underlying store for read paths that already hold a resolved chain.
func (s *Service) Store() store.Store { return s.store }

func (s *Service) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return invalid("Validation failed: %s", strings.Join(msgs, "; "))
		}
		return invalid("Validation failed: %s", err.Error())
	}
	return nil
}

func requireUser(user auth.User) error {
	if user.ID == "" {
		return ownership.ErrUnauthenticated
	}
	return nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func nonEmptyOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
