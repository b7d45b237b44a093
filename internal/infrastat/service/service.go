// Package service orchestrates the declaration pipeline: ingestion with
// validation, submission to the statistics portal, and archival.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"infrastat/internal/events"
	"infrastat/internal/infrastat/metrics"
	"infrastat/internal/infrastat/models"
	"infrastat/internal/infrastat/store/idempotency"
	"infrastat/internal/infrastat/validate"
	"infrastat/internal/portal"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/tx"
)

type BatchStore interface {
	Create(ctx context.Context, batch models.DeclarationBatch) error
	Save(ctx context.Context, batch models.DeclarationBatch) error
	ReplaceLines(ctx context.Context, batchID id.BatchID, lines []models.DeclarationLine) error
	ReplaceFindings(ctx context.Context, batchID id.BatchID, findings []models.ValidationError) error
	FindByID(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (models.DeclarationBatch, error)
	FindByPeriod(ctx context.Context, tenantID id.TenantID, period id.RefPeriod, flow id.FlowType) (models.DeclarationBatch, error)
	Lines(ctx context.Context, batchID id.BatchID) ([]models.DeclarationLine, error)
	Findings(ctx context.Context, batchID id.BatchID) ([]models.ValidationError, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.DeclarationBatch, error)
}

type SubmissionStore interface {
	Append(ctx context.Context, log models.SubmissionLog) error
	Update(ctx context.Context, log models.SubmissionLog) error
	ListByBatch(ctx context.Context, batchID id.BatchID) ([]models.SubmissionLog, error)
}

// ReferenceSource supplies the current validation codesets.
type ReferenceSource interface {
	Snapshot() validate.ReferenceData
}

// SubmitConfig shapes the portal retry policy.
type SubmitConfig struct {
	// MaxAttempts is the total upload attempts per submission, including
	// the first one.
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// Channel labels the delivery route in submission logs.
	Channel string
	// IdempotencyTTL bounds how long a successful payload hash suppresses
	// identical re-submissions.
	IdempotencyTTL time.Duration
	// Disabled turns every submission into a dry run, network untouched.
	Disabled bool
}

func (c SubmitConfig) withDefaults() SubmitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Channel == "" {
		c.Channel = "portal"
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
	return c
}

// Service orchestrates declaration batches through their lifecycle.
type Service struct {
	batches     BatchStore
	submissions SubmissionStore
	idem        idempotency.Store
	refdata     ReferenceSource
	portal      portal.Client
	publisher   events.Publisher
	runner      tx.Runner
	submitCfg   SubmitConfig

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time

	// rolling submission outcome window for the failure ratio gauge
	outcomes *outcomeWindow
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func WithIdempotencyStore(store idempotency.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.idem = store
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithSubmitConfig(cfg SubmitConfig) Option {
	return func(s *Service) {
		s.submitCfg = cfg.withDefaults()
	}
}

// New constructs a Service.
func New(batches BatchStore, submissions SubmissionStore, refdata ReferenceSource, portalClient portal.Client, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		batches:     batches,
		submissions: submissions,
		idem:        idempotency.NewMemoryStore(),
		refdata:     refdata,
		portal:      portalClient,
		publisher:   events.NoopPublisher{},
		runner:      runner,
		submitCfg:   SubmitConfig{}.withDefaults(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("infrastat/service"),
		clock:       time.Now,
		outcomes:    newOutcomeWindow(outcomeWindowSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
