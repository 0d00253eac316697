package service

import (
	"context"
	"time"

	"payfriend/internal/models"
	"payfriend/internal/session"
	"payfriend/internal/transport"
	"payfriend/internal/validation"
)

// Backend paths. The backend contract is not settled; these are the only
// routes the facade calls.
const (
	pathOffers      = "/offers"
	pathMiniApps    = "/mini-apps"
	pathCreditScore = "/credit-score"
)

// LiveOptions configures a Live.
type LiveOptions struct {
	Client *transport.Client
	// LogoutDelay delays Logout; zero resolves immediately.
	LogoutDelay time.Duration
	Sessions    *session.Store // optional
	Observer    Observer
}

// Live fetches resources from the backend over HTTP. It does not retry,
// cache or return partial results.
type Live struct {
	client      *transport.Client
	logoutDelay time.Duration
	sessions    *session.Store
	obs         Observer
}

func NewLive(opts LiveOptions) *Live {
	return &Live{
		client:      opts.Client,
		logoutDelay: opts.LogoutDelay,
		sessions:    opts.Sessions,
		obs:         opts.Observer.withDefaults(),
	}
}

func (l *Live) GetOffers(ctx context.Context) ([]models.Offer, error) {
	return observe(ctx, l.obs, ResourceOffers, SourceLive, func(ctx context.Context) ([]models.Offer, error) {
		return transport.Get(ctx, l.client, pathOffers, validation.ValidateOffers)
	})
}

func (l *Live) GetMiniApps(ctx context.Context) ([]models.MiniApp, error) {
	return observe(ctx, l.obs, ResourceMiniApps, SourceLive, func(ctx context.Context) ([]models.MiniApp, error) {
		return transport.Get(ctx, l.client, pathMiniApps, validation.ValidateMiniApps)
	})
}

func (l *Live) GetCreditScore(ctx context.Context) (models.CreditScoreReport, error) {
	return observe(ctx, l.obs, ResourceCreditScore, SourceLive, func(ctx context.Context) (models.CreditScoreReport, error) {
		body, status, err := l.client.GetRaw(ctx, pathCreditScore)
		if err != nil {
			return models.CreditScoreReport{}, err
		}

		report, err := decodeCreditScore(body)
		if err != nil {
			return models.CreditScoreReport{}, transport.Malformed(status, err)
		}
		if err := validation.ValidateCreditScoreReport(report); err != nil {
			return models.CreditScoreReport{}, transport.Malformed(status, err)
		}
		return report, nil
	})
}

// Logout invalidates the local session. The backend has no logout route
// yet, so nothing is sent.
func (l *Live) Logout(ctx context.Context) error {
	return terminateSession(ctx, l.obs, SourceLive, l.sessions, l.logoutDelay)
}
