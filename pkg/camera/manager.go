package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// settable maps dashboard field names to the Config field they change.
var settable = map[string]func(*Config, int){
	"width":       func(c *Config, v int) { c.Width = v },
	"height":      func(c *Config, v int) { c.Height = v },
	"framerate":   func(c *Config, v int) { c.Framerate = v },
	"quality":     func(c *Config, v int) { c.Quality = v },
	"flip_method": func(c *Config, v int) { c.FlipMethod = v },
}

// Manager holds the live camera settings. Updates are validated as a
// whole and then pushed to OnConfigChange, normally Capture.Apply.
type Manager struct {
	mu         sync.RWMutex
	config     Config
	sizeLocked bool

	OnConfigChange func(cfg Config) error
}

// NewManager creates a manager seeded with cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current settings.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// LockSize refuses later changes to width and height. The autopilot steers
// towards a fixed pixel column, so the frame size must not change under it.
func (m *Manager) LockSize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizeLocked = true
}

// SetConfig stores cfg if it is valid and then applies it. A failed apply
// is reported but the stored settings are kept.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	m.mu.Lock()
	if m.sizeLocked && (cfg.Width != m.config.Width || cfg.Height != m.config.Height) {
		cur := m.config
		m.mu.Unlock()
		return fmt.Errorf("%w: %dx%d requested, %dx%d in use", ErrSizeLocked,
			cfg.Width, cfg.Height, cur.Width, cur.Height)
	}
	m.config = cfg
	apply := m.OnConfigChange
	m.mu.Unlock()

	if apply == nil {
		return nil
	}
	if err := apply(cfg); err != nil {
		return fmt.Errorf("apply camera settings: %w", err)
	}
	return nil
}

// UpdateConfig applies a partial update such as {"preset": "low"} or
// {"width": 320, "height": 240}. A preset is applied first and keeps the
// current source; the remaining keys override it.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	for key, value := range params {
		if key == "preset" {
			name, _ := value.(string)
			preset := GetPreset(name)
			if preset == nil {
				return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
			}
			preset.Mode, preset.Device, preset.Files, preset.Loop = cfg.Mode, cfg.Device, cfg.Files, cfg.Loop
			cfg = *preset
		}
	}

	for key, value := range params {
		if key == "preset" {
			continue
		}
		set, ok := settable[key]
		if !ok {
			return fmt.Errorf("%w: unknown setting %q", ErrInvalidConfig, key)
		}
		v, ok := toInt(value)
		if !ok {
			return fmt.Errorf("%w: %s must be a whole number, got %v", ErrInvalidConfig, key, value)
		}
		set(&cfg, v)
	}

	return m.SetConfig(cfg)
}

// toInt accepts the numeric types JSON decoding and Go callers produce.
// Fractional values are rejected.
func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		return int(i), err == nil
	}
	return 0, false
}
