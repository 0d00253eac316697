package service

import (
	"context"
	"errors"
	"time"

	"payfriend/internal/models"
	"payfriend/internal/session"
)

// DefaultLogoutDelay is the simulated round trip of a logout.
const DefaultLogoutDelay = 500 * time.Millisecond

// MockOptions configures a Mock.
type MockOptions struct {
	// Latency delays every fetch; zero resolves immediately.
	Latency time.Duration
	// LogoutDelay delays Logout; zero resolves immediately.
	LogoutDelay time.Duration
	Sessions    *session.Store // optional
	Observer    Observer
}

// Mock serves literal fixtures for screens whose backend does not exist yet.
type Mock struct {
	latency     time.Duration
	logoutDelay time.Duration
	sessions    *session.Store
	obs         Observer
}

func NewMock(opts MockOptions) *Mock {
	return &Mock{
		latency:     opts.Latency,
		logoutDelay: opts.LogoutDelay,
		sessions:    opts.Sessions,
		obs:         opts.Observer.withDefaults(),
	}
}

func (m *Mock) GetOffers(ctx context.Context) ([]models.Offer, error) {
	return observe(ctx, m.obs, ResourceOffers, SourceMock, func(ctx context.Context) ([]models.Offer, error) {
		if err := sleep(ctx, m.latency); err != nil {
			return nil, err
		}
		return offerFixtures(), nil
	})
}

func (m *Mock) GetMiniApps(ctx context.Context) ([]models.MiniApp, error) {
	return observe(ctx, m.obs, ResourceMiniApps, SourceMock, func(ctx context.Context) ([]models.MiniApp, error) {
		if err := sleep(ctx, m.latency); err != nil {
			return nil, err
		}
		return miniAppFixtures(), nil
	})
}

func (m *Mock) GetCreditScore(ctx context.Context) (models.CreditScoreReport, error) {
	return observe(ctx, m.obs, ResourceCreditScore, SourceMock, func(ctx context.Context) (models.CreditScoreReport, error) {
		if err := sleep(ctx, m.latency); err != nil {
			return models.CreditScoreReport{}, err
		}
		return creditScoreFixture(), nil
	})
}

func (m *Mock) Logout(ctx context.Context) error {
	return terminateSession(ctx, m.obs, SourceMock, m.sessions, m.logoutDelay)
}

func offerFixtures() []models.Offer {
	return []models.Offer{
		{
			OfferID:     "1",
			Description: "Get 10% cashback on your first bill payment",
			Image:       "/images/offers/cashback.png",
			OfferType:   "Cashback",
		},
		{
			OfferID:     "2",
			Description: "Flat 50 off on mobile recharges above 299",
			Image:       "/images/offers/coupon.png",
			OfferType:   "Coupon",
		},
	}
}

func miniAppFixtures() []models.MiniApp {
	return []models.MiniApp{
		{
			AppID:       "1",
			Name:        "Digital Gold",
			Description: "Buy and sell 24K gold starting at 1 rupee",
			Icon:        "/icons/mini-apps/gold.svg",
			LaunchURL:   "https://miniapps.payfriend.app/gold",
		},
		{
			AppID:       "2",
			Name:        "Health Checkups",
			Description: "Book lab tests and doctor consultations",
			Icon:        "/icons/mini-apps/health.svg",
			LaunchURL:   "https://miniapps.payfriend.app/healthcare",
		},
	}
}

func creditScoreFixture() models.CreditScoreReport {
	return models.CreditScoreReport{
		Score:      750,
		Provider:   "CIBIL",
		ReportDate: "2024-01-15T00:00:00.000Z",
	}
}

// terminateSession invalidates the local session, waits the simulated
// logout delay and announces the termination.
func terminateSession(ctx context.Context, obs Observer, source string, sessions *session.Store, delay time.Duration) error {
	_, err := observe(ctx, obs, ResourceSession, source, func(ctx context.Context) (struct{}, error) {
		var userID string
		if sessions != nil {
			if current, err := sessions.Current(ctx); err == nil {
				userID = current.UserID
			} else if !errors.Is(err, session.ErrNoSession) {
				return struct{}{}, err
			}
			if err := sessions.Invalidate(ctx); err != nil {
				return struct{}{}, err
			}
		}

		if err := sleep(ctx, delay); err != nil {
			return struct{}{}, err
		}

		if obs.Events != nil {
			obs.Events.PublishSessionTerminated(ctx, userID)
		}
		obs.Logger.InfoContext(ctx, "session terminated", "source", source, "user_id", userID)
		return struct{}{}, nil
	})
	return err
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
