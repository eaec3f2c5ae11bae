package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/metrics"
)

const (
	defaultProviderTimeout = 15 * time.Second
	defaultAdviceTimeout   = 20 * time.Second

	AdviceUnavailable = "Advisory note unavailable."
)

// reportKinds is the fixed set of providers every report carries.
var reportKinds = []contractx.ProviderKind{
	contractx.ProviderWeather,
	contractx.ProviderImagery,
	contractx.ProviderWater,
}

type Config struct {
	ProviderTimeout time.Duration `split_words:"true" default:"15s"`
	AdviceTimeout   time.Duration `split_words:"true" default:"20s"`
}

type Option func(*Aggregator)

func WithAdvisor(advisor contractx.Advisor) Option {
	return func(a *Aggregator) {
		a.advisor = advisor
	}
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator calls the weather, imagery and water providers concurrently and
// joins their tagged results. A failing, slow or panicking provider only
// degrades its own section of the report.
type Aggregator struct {
	providers       map[contractx.ProviderKind]contractx.Provider
	advisor         contractx.Advisor
	providerTimeout time.Duration
	adviceTimeout   time.Duration
	metrics         *metricsx.Metrics
	now             func() time.Time
}

var _ contractx.Aggregator = (*Aggregator)(nil)

func New(providers []contractx.Provider, cfg Config, opts ...Option) (*Aggregator, error) {
	byKind := make(map[contractx.ProviderKind]contractx.Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("provider is nil")
		}
		if _, dup := byKind[p.Kind()]; dup {
			return nil, fmt.Errorf("duplicate provider kind %q", p.Kind())
		}
		byKind[p.Kind()] = p
	}

	a := &Aggregator{
		providers:       byKind,
		providerTimeout: cfg.ProviderTimeout,
		adviceTimeout:   cfg.AdviceTimeout,
		now:             time.Now,
	}
	if a.providerTimeout <= 0 {
		a.providerTimeout = defaultProviderTimeout
	}
	if a.adviceTimeout <= 0 {
		a.adviceTimeout = defaultAdviceTimeout
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

func (a *Aggregator) Aggregate(ctx context.Context, q contractx.Query) contractx.AggregatedReport {
	reportID := uuid.NewString()
	logger := log.With().Str("report_id", reportID).Str("crop", q.Crop).Logger()
	logger.Info().Str("date", q.Date).Msg("aggregating provider data")

	results := make([]contractx.ProviderResult, len(reportKinds))

	var g errgroup.Group
	for i, kind := range reportKinds {
		i, kind := i, kind
		g.Go(func() error {
			results[i] = a.fetch(ctx, kind, q)
			return nil
		})
	}
	_ = g.Wait()

	report := contractx.AggregatedReport{
		ID:          reportID,
		Query:       q,
		Weather:     results[0],
		Imagery:     results[1],
		Water:       results[2],
		CompletedAt: a.now().UTC(),
	}

	for _, r := range results {
		if err := r.Err(); err != nil {
			logger.Error().Err(err).Msg("provider degraded")
		}
	}

	if a.advisor != nil {
		advice := a.advise(ctx, report)
		report.Advice = &advice
	}

	return report
}

func (a *Aggregator) fetch(ctx context.Context, kind contractx.ProviderKind, q contractx.Query) contractx.ProviderResult {
	p, ok := a.providers[kind]
	if !ok {
		return contractx.Failure(kind, fmt.Sprintf("No %s provider configured.", kind))
	}

	start := time.Now()
	res := a.call(ctx, p, q)
	a.metrics.ObserveProvider(string(kind), res.OK, time.Since(start))
	return res
}

// call runs the provider under its own deadline. A provider that ignores its
// context is abandoned when the deadline passes; its late result is dropped.
func (a *Aggregator) call(ctx context.Context, p contractx.Provider, q contractx.Query) contractx.ProviderResult {
	kind := p.Kind()
	cctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	done := make(chan contractx.ProviderResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("provider", string(kind)).Interface("panic", r).Msg("provider panicked")
				done <- contractx.Failure(kind, processingError(kind))
			}
		}()
		res := p.Fetch(cctx, q)
		res.Provider = kind
		if !res.OK && strings.TrimSpace(res.Reason) == "" {
			res.Reason = processingError(kind)
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-cctx.Done():
		log.Error().Str("provider", string(kind)).Dur("timeout", a.providerTimeout).Msg("provider timed out")
		return contractx.Failure(kind, timeoutReason(kind))
	}
}

func (a *Aggregator) advise(ctx context.Context, report contractx.AggregatedReport) contractx.ProviderResult {
	cctx, cancel := context.WithTimeout(ctx, a.adviceTimeout)
	defer cancel()

	start := time.Now()
	note, err := a.advisor.Advise(cctx, report)
	note = strings.TrimSpace(note)
	if err == nil && note == "" {
		err = fmt.Errorf("%w: empty advisory note", contractx.ErrModelInvoke)
	}
	a.metrics.ObserveProvider(string(contractx.ProviderAdvice), err == nil, time.Since(start))

	if err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("advisor failed")
		return contractx.Failure(contractx.ProviderAdvice, AdviceUnavailable)
	}
	return contractx.Success(contractx.ProviderAdvice, contractx.AdviceData{Note: note})
}

func processingError(kind contractx.ProviderKind) string {
	return fmt.Sprintf("An error occurred while processing %s data.", kind)
}

func timeoutReason(kind contractx.ProviderKind) string {
	return fmt.Sprintf("Timed out waiting for %s data.", kind)
}
