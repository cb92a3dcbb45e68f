package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetFlipped = "flipped"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowResConfig(),
		Preset720p:    HD720Config(),
		PresetFlipped: FlippedConfig(),
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LowResConfig trades accuracy for frame rate on a busy Jetson.
func LowResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 60
	return cfg
}

// HD720Config captures 1280x720. Set autopilot frame_center_x to 640 with it;
// size presets are refused once the autopilot holds the camera.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.Framerate = 60
	return cfg
}

// FlippedConfig is for cameras mounted upside down.
func FlippedConfig() Config {
	cfg := DefaultConfig()
	cfg.FlipMethod = 2
	return cfg
}
