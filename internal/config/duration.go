package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration reads a JSON duration written either as a Go duration string
// ("30s", "250ms") or as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or integer nanoseconds, got %s", data)
	}
	*d = Duration(n)
	return nil
}

// setDuration copies d into dst when the file set it.
func setDuration(dst *time.Duration, d *Duration) {
	if d != nil {
		*dst = time.Duration(*d)
	}
}

// UnmarshalJSON overlays a JSON server section, accepting duration strings.
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type plain ServerConfig
	aux := struct {
		*plain
		ReadTimeout     *Duration `json:"read_timeout"`
		WriteTimeout    *Duration `json:"write_timeout"`
		ShutdownTimeout *Duration `json:"shutdown_timeout"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	setDuration(&s.ReadTimeout, aux.ReadTimeout)
	setDuration(&s.WriteTimeout, aux.WriteTimeout)
	setDuration(&s.ShutdownTimeout, aux.ShutdownTimeout)
	return nil
}

// UnmarshalJSON overlays a JSON backend section, accepting duration strings.
func (b *BackendConfig) UnmarshalJSON(data []byte) error {
	type plain BackendConfig
	aux := struct {
		*plain
		Timeout     *Duration `json:"timeout"`
		MockLatency *Duration `json:"mock_latency"`
		LogoutDelay *Duration `json:"logout_delay"`
	}{plain: (*plain)(b)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	setDuration(&b.Timeout, aux.Timeout)
	setDuration(&b.MockLatency, aux.MockLatency)
	setDuration(&b.LogoutDelay, aux.LogoutDelay)
	return nil
}
