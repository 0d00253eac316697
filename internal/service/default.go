package service

import "sync"

var (
	defaultMu     sync.Mutex
	defaultFacade Facade
)

// Init installs f as the process-wide Facade. Only the first installation
// takes effect; Init reports whether f was installed.
func Init(f Facade) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFacade != nil {
		return false
	}
	defaultFacade = f
	return true
}

// Default returns the process-wide Facade, building a fixture-backed one on
// first use if Init was never called.
func Default() Facade {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultFacade == nil {
		defaultFacade = NewMock(MockOptions{LogoutDelay: DefaultLogoutDelay})
	}
	return defaultFacade
}
