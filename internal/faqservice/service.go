// Package faqservice exposes the collection-level FAQ actions on top of the
// record store. It holds no storage logic of its own.
package faqservice

import (
	"context"
	"log/slog"

	"github.com/starford/faqs/internal/faqstore"
	"github.com/starford/faqs/internal/models"
)

// Event kinds passed to an EventFunc.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
	EventChanged = "changed"
)

// EventFunc is called after a successful mutation.
type EventFunc func(kind string, id int)

// CreateInput is the validated request to create a record.
type CreateInput = faqstore.Draft

// Service coordinates record store operations.
type Service struct {
	store  *faqstore.Store
	logger *slog.Logger
	notify EventFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for mutation audit lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEvents registers fn to be called after every successful mutation.
func WithEvents(fn EventFunc) Option {
	return func(s *Service) { s.notify = fn }
}

// NewService creates a new FAQ service.
func NewService(store *faqstore.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAll returns every record as stored.
func (s *Service) ListAll(_ context.Context) ([]models.Faq, error) {
	return s.store.List()
}

// GetOne returns a single record or apperr.ErrNotFound.
func (s *Service) GetOne(_ context.Context, id int) (models.Faq, error) {
	return s.store.GetByID(id)
}

// Create validates in before touching storage, then inserts it.
func (s *Service) Create(_ context.Context, in CreateInput) (models.Faq, error) {
	if err := in.Validate(); err != nil {
		return models.Faq{}, err
	}
	faq, err := s.store.Insert(in)
	if err != nil {
		return models.Faq{}, err
	}
	s.logger.Info("faq created", slog.Int("id", faq.ID))
	s.emit(EventCreated, faq.ID)
	return faq, nil
}

// Delete removes the record with id or returns apperr.ErrNotFound.
func (s *Service) Delete(_ context.Context, id int) error {
	if err := s.store.DeleteByID(id); err != nil {
		return err
	}
	s.logger.Info("faq deleted", slog.Int("id", id))
	s.emit(EventDeleted, id)
	return nil
}

// Ready reports whether the backing file can currently be loaded.
func (s *Service) Ready(_ context.Context) error {
	_, err := s.store.Load()
	return err
}

func (s *Service) emit(kind string, id int) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}
