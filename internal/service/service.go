// Package service provides the typed data facade the app screens call: one
// accessor per remote resource, backed by literal fixtures or by the live
// backend.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"payfriend/internal/events"
	"payfriend/internal/features"
	"payfriend/internal/metrics"
	"payfriend/internal/models"
	"payfriend/internal/tracing"
	"payfriend/internal/transport"
)

// Resource names used in logs, metrics and events.
const (
	ResourceOffers      = "offers"
	ResourceMiniApps    = "mini_apps"
	ResourceCreditScore = "credit_score"
	ResourceSession     = "session"
)

// Realization names.
const (
	SourceMock = "mock"
	SourceLive = "live"
)

// Facade is the data surface the app screens depend on. Every call is
// independent, holds no shared mutable state, and returns transport failures
// unchanged.
type Facade interface {
	GetOffers(ctx context.Context) ([]models.Offer, error)
	GetMiniApps(ctx context.Context) ([]models.MiniApp, error)
	GetCreditScore(ctx context.Context) (models.CreditScoreReport, error)
	// Logout invalidates the local session and resolves with no value.
	Logout(ctx context.Context) error
}

// Observer carries the ambient collaborators every realization reports to.
type Observer struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	Events  *events.Manager // optional
}

func (o Observer) withDefaults() Observer {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewNoop()
	}
	return o
}

// observe runs fn in a span, records its outcome and, on failure, logs a
// diagnostic and hands the original error back with a zero value.
func observe[T any](ctx context.Context, o Observer, resource, source string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "facade."+resource)
	defer span.End()
	span.SetAttributes(
		attribute.String("facade.resource", resource),
		attribute.String("facade.source", source),
	)

	start := time.Now()
	val, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		status := transport.StatusOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.Logger.ErrorContext(ctx, "facade call failed",
			"resource", resource,
			"source", source,
			"status", status,
			"error", err,
		)
		if o.Events != nil {
			o.Events.PublishFetchFailed(ctx, resource, status, err)
		}
		o.Metrics.ObserveFetch(resource, source, "error", elapsed)
		var zero T
		return zero, err
	}

	o.Metrics.ObserveFetch(resource, source, "success", elapsed)
	return val, nil
}

// Options configures New.
type Options struct {
	Flags *features.Manager
	Mock  *Mock
	Live  *Live // required when any live flag is enabled
}

type composite struct {
	offers      Facade
	miniApps    Facade
	creditScore Facade
	session     Facade
}

// New builds a Facade whose per-resource realization is fixed here, from the
// live_* feature flags. Logout goes to the live realization when one is
// configured, so the session it invalidates is the one the transport uses.
func New(opts Options) (Facade, error) {
	if opts.Mock == nil {
		opts.Mock = NewMock(MockOptions{LogoutDelay: DefaultLogoutDelay})
	}
	flags := opts.Flags
	if flags == nil {
		flags = features.NewManager()
	}

	pick := func(flag string) (Facade, error) {
		if !flags.IsEnabled(flag) {
			return opts.Mock, nil
		}
		if opts.Live == nil {
			return nil, fmt.Errorf("feature %s requires a live backend", flag)
		}
		return opts.Live, nil
	}

	c := &composite{session: opts.Mock}
	var err error
	if c.offers, err = pick(features.FeatureLiveOffers); err != nil {
		return nil, err
	}
	if c.miniApps, err = pick(features.FeatureLiveMiniApps); err != nil {
		return nil, err
	}
	if c.creditScore, err = pick(features.FeatureLiveCreditScore); err != nil {
		return nil, err
	}
	if opts.Live != nil {
		c.session = opts.Live
	}
	return c, nil
}

func (c *composite) GetOffers(ctx context.Context) ([]models.Offer, error) {
	return c.offers.GetOffers(ctx)
}

func (c *composite) GetMiniApps(ctx context.Context) ([]models.MiniApp, error) {
	return c.miniApps.GetMiniApps(ctx)
}

func (c *composite) GetCreditScore(ctx context.Context) (models.CreditScoreReport, error) {
	return c.creditScore.GetCreditScore(ctx)
}

func (c *composite) Logout(ctx context.Context) error {
	return c.session.Logout(ctx)
}
