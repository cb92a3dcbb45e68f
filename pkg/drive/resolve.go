package drive

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/host/v3"

	"github.com/teslashibe/go-jetbot/internal/log"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph host drivers once per process.
func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostErr
}

// probe tries to open one kind of backend.
type probe struct {
	kind Kind
	open func(Config) (Backend, error)
}

func defaultProbes() map[string]probe {
	return map[string]probe{
		BackendPCA9685: {KindPCA9685, func(c Config) (Backend, error) { return NewPCA9685Backend(c) }},
		BackendGPIO:    {KindGPIO, func(c Config) (Backend, error) { return NewGPIOBackend(c) }},
		BackendMock:    {KindMock, func(Config) (Backend, error) { return NewMockBackend(), nil }},
	}
}

// probeOrder lists the backends tried for a configured name.
func probeOrder(name string) ([]string, error) {
	switch name {
	case BackendAuto, "":
		return []string{BackendPCA9685, BackendGPIO, BackendMock}, nil
	case BackendPCA9685, BackendGPIO, BackendMock:
		return []string{name}, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownBackend)
	}
}

// Resolve probes hardware once and returns the first backend that opens.
// With Backend set to auto the order is pca9685, gpio, mock; naming a
// backend explicitly disables the fallback.
func Resolve(cfg Config) (Backend, Kind, error) {
	return resolve(cfg, defaultProbes())
}

func resolve(cfg Config, probes map[string]probe) (Backend, Kind, error) {
	order, err := probeOrder(cfg.Backend)
	if err != nil {
		return nil, KindMock, err
	}

	logger := log.Component("drive")
	var errs []error
	for _, name := range order {
		p, ok := probes[name]
		if !ok {
			continue
		}
		b, err := p.open(cfg)
		if err != nil {
			logger.Debug("motor backend unavailable", "backend", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if p.kind == KindMock && len(order) > 1 {
			logger.Warn("no motor hardware found, using mock backend")
		} else {
			logger.Info("motor backend ready", "backend", p.kind)
		}
		return b, p.kind, nil
	}

	errs = append([]error{ErrNoBackend}, errs...)
	return nil, KindMock, errors.Join(errs...)
}
