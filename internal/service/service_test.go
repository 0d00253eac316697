package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"payfriend/internal/config"
	"payfriend/internal/deferred"
	"payfriend/internal/features"
	"payfriend/internal/logging"
	"payfriend/internal/models"
	"payfriend/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNew_RoutesByFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/credit-score":
			w.Write([]byte(`{"score":640,"provider":"Equifax","reportDate":"2023-12-31"}`))
		default:
			t.Errorf("unexpected live call to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	live := NewLive(LiveOptions{
		Client:   transport.NewClient(transport.Config{BaseURL: server.URL}),
		Observer: quietObserver(),
	})
	f, err := New(Options{
		Flags: features.FromConfig(config.FeatureConfig{LiveCreditScore: true}),
		Mock:  NewMock(MockOptions{Observer: quietObserver()}),
		Live:  live,
	})
	require.NoError(t, err)

	ctx := context.Background()
	offers, err := f.GetOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, offerFixtures(), offers)

	apps, err := f.GetMiniApps(ctx)
	require.NoError(t, err)
	assert.Equal(t, miniAppFixtures(), apps)

	report, err := f.GetCreditScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CreditScoreReport{Score: 640, Provider: "Equifax", ReportDate: "2023-12-31T00:00:00.000Z"}, report)

	assert.NoError(t, f.Logout(ctx))
}

func TestNew_LiveFlagWithoutBackend(t *testing.T) {
	_, err := New(Options{Flags: features.FromConfig(config.FeatureConfig{LiveOffers: true})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), features.FeatureLiveOffers)
}

func TestNew_AllMockByDefault(t *testing.T) {
	f, err := New(Options{Mock: NewMock(MockOptions{Observer: quietObserver()})})
	require.NoError(t, err)

	offers, err := f.GetOffers(context.Background())
	require.NoError(t, err)
	assert.Len(t, offers, 2)
}

func TestDefault_LazyThenInitIgnored(t *testing.T) {
	defaultMu.Lock()
	defaultFacade = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultFacade = nil
		defaultMu.Unlock()
	})

	first := Default()
	require.NotNil(t, first)
	assert.Same(t, first, Default())

	assert.False(t, Init(NewMock(MockOptions{})))
	assert.Same(t, first, Default())
}

func TestInit_InstallsFacade(t *testing.T) {
	defaultMu.Lock()
	defaultFacade = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultFacade = nil
		defaultMu.Unlock()
	})

	m := NewMock(MockOptions{Observer: Observer{Logger: logging.Discard()}})
	assert.True(t, Init(m))
	assert.Same(t, m, Default())
}

func TestFacade_Deferred(t *testing.T) {
	f := NewMock(MockOptions{Observer: quietObserver()})
	ctx := context.Background()

	offers := deferred.Go(ctx, f.GetOffers)
	apps := deferred.Go(ctx, f.GetMiniApps)
	logout := deferred.Go(ctx, deferred.Void(f.Logout))

	gotOffers, err := offers.Await(ctx)
	require.NoError(t, err)
	assert.Len(t, gotOffers, 2)

	gotApps, err := apps.Await(ctx)
	require.NoError(t, err)
	assert.Len(t, gotApps, 2)

	_, err = logout.Await(ctx)
	assert.NoError(t, err)
}

func TestNormalizeReportDate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    string
		wantErr bool
	}{
		{"epoch millis", `{"d":1709251200000}`, "2024-03-01T00:00:00.000Z", false},
		{"epoch zero", `{"d":0}`, "1970-01-01T00:00:00.000Z", false},
		{"rfc3339 utc", `{"d":"2024-03-01T10:20:30Z"}`, "2024-03-01T10:20:30.000Z", false},
		{"rfc3339 offset", `{"d":"2024-03-01T05:30:00+05:30"}`, "2024-03-01T00:00:00.000Z", false},
		{"iso millis", `{"d":"2024-03-01T10:20:30.123Z"}`, "2024-03-01T10:20:30.123Z", false},
		{"no zone", `{"d":"2024-03-01T10:20:30"}`, "2024-03-01T10:20:30.000Z", false},
		{"date only", `{"d":"2024-03-01"}`, "2024-03-01T00:00:00.000Z", false},
		{"garbage", `{"d":"soon"}`, "", true},
		{"null", `{"d":null}`, "", true},
		{"missing", `{}`, "", true},
		{"bool", `{"d":true}`, "", true},
		{"object", `{"d":{}}`, "", true},
		{"last millisecond of 9999", `{"d":253402300799999}`, "9999-12-31T23:59:59.999Z", false},
		{"year 10000", `{"d":253402300800000}`, "", true},
		{"beyond float precision", `{"d":1e20}`, "", true},
		{"large negative", `{"d":-1e20}`, "", true},
		{"negative year", `{"d":-62167219200001}`, "", true},
		{"first millisecond of year 0", `{"d":-62167219200000}`, "0000-01-01T00:00:00.000Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeReportDate(gjson.Get(tt.json, "d"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
