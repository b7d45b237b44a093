// Package refdata loads and refreshes the tenant-scoped reference codesets
// (valid commodity codes, valid country codes) that validation runs against.
//
// The dataset lives in flat CSV files supplied by an external collaborator.
// A missing file degrades the corresponding rule to a no-op instead of
// failing startup. Readers always see a consistent snapshot and never block;
// refreshes swap the snapshot atomically and are gated by a timestamp so a
// flapping source cannot be hammered.
package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"infrastat/internal/infrastat/validate"
)

// Config locates the source files and shapes the refresh policy.
type Config struct {
	CommodityCodesPath string
	CountryCodesPath   string
	// RefreshInterval is the minimum time between successful refreshes.
	RefreshInterval time.Duration
	// FailureBackoff is the minimum wait after a failed refresh before the
	// next attempt is allowed.
	FailureBackoff time.Duration
}

// Clock abstracts wall-clock time for deterministic tests.
type Clock func() time.Time

// Provider holds the current reference snapshot and the refresh gate.
type Provider struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger

	snapshot atomic.Pointer[validate.ReferenceData]

	mu          sync.Mutex
	nextAllowed time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewProvider loads the initial snapshot and returns the provider. Load
// errors beyond a missing file are returned; missing files yield empty sets.
func NewProvider(cfg Config, logger *slog.Logger, opts ...Option) (*Provider, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.FailureBackoff <= 0 {
		cfg.FailureBackoff = 5 * time.Minute
	}
	p := &Provider{cfg: cfg, clock: time.Now, logger: logger}
	for _, opt := range opts {
		opt(p)
	}

	ref, err := load(cfg)
	if err != nil {
		return nil, err
	}
	p.snapshot.Store(&ref)
	p.nextAllowed = p.clock().Add(cfg.RefreshInterval)
	return p, nil
}

// Snapshot returns the current reference dataset. A slightly stale snapshot
// is acceptable by contract; reads never block writers and vice versa.
func (p *Provider) Snapshot() validate.ReferenceData {
	return *p.snapshot.Load()
}

// Refresh reloads the source files if the gate allows it. Returns whether a
// reload was attempted.
func (p *Provider) Refresh(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	if now.Before(p.nextAllowed) {
		return false, nil
	}

	ref, err := load(p.cfg)
	if err != nil {
		p.nextAllowed = now.Add(p.cfg.FailureBackoff)
		return true, err
	}
	p.snapshot.Store(&ref)
	p.nextAllowed = now.Add(p.cfg.RefreshInterval)
	return true, nil
}

// Run refreshes on the given tick until ctx is cancelled.
func (p *Provider) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if attempted, err := p.Refresh(ctx); attempted && err != nil {
				p.logger.Warn("reference data refresh failed", "error", err)
			}
		}
	}
}

func load(cfg Config) (validate.ReferenceData, error) {
	commodities, err := loadSet(cfg.CommodityCodesPath)
	if err != nil {
		return validate.ReferenceData{}, fmt.Errorf("load commodity codes: %w", err)
	}
	countries, err := loadSet(cfg.CountryCodesPath)
	if err != nil {
		return validate.ReferenceData{}, fmt.Errorf("load country codes: %w", err)
	}
	return validate.ReferenceData{CommodityCodes: commodities, CountryCodes: countries}, nil
}

// loadSet reads the first column of a CSV file into a set. An empty path or
// missing file yields an empty set so the corresponding rule is skipped.
func loadSet(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if path == "" {
		return set, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(record) == 0 {
			continue
		}
		code := strings.TrimSpace(record[0])
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set, nil
}
