package features

import (
	"sync"

	"payfriend/internal/config"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string
	Enabled     bool
	Description string
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// FromConfig registers the predefined flags with values from cfg.
func FromConfig(cfg config.FeatureConfig) *Manager {
	m := NewManager()
	m.Register(FeatureLiveOffers, cfg.LiveOffers, "fetch offers from the backend")
	m.Register(FeatureLiveMiniApps, cfg.LiveMiniApps, "fetch mini-apps from the backend")
	m.Register(FeatureLiveCreditScore, cfg.LiveCreditScore, "fetch the credit score from the backend")
	m.Register(FeatureEventHooks, cfg.EventHooks, "publish facade events to subscribers")
	return m
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}

	return flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.set(name, true)
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.set(name, false)
}

func (m *Manager) set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns a copy of all feature flags.
func (m *Manager) GetAll() map[string]FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]FeatureFlag, len(m.flags))
	for k, v := range m.flags {
		result[k] = *v
	}
	return result
}

// Predefined feature flag names
const (
	// FeatureLiveOffers routes offers to the live backend
	FeatureLiveOffers = "live_offers"
	// FeatureLiveMiniApps routes mini-apps to the live backend
	FeatureLiveMiniApps = "live_mini_apps"
	// FeatureLiveCreditScore routes the credit score to the live backend
	FeatureLiveCreditScore = "live_credit_score"
	// FeatureEventHooks enables/disables event-driven hooks
	FeatureEventHooks = "event_hooks"
)
