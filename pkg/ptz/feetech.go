package ptz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// stsCenter and stsSteps describe the STS3215 encoder: 4096 counts per
// turn with 2048 at mid travel.
const (
	stsCenter = 2048
	stsSteps  = 4096
)

// FeetechBackend drives a pan/tilt head built from STS bus servos.
type FeetechBackend struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
	ids   map[string]int
	port  string
}

// NewFeetechBackend opens cfg.SerialPort or, when empty, scans every
// serial port for a bus answering on both servo IDs.
func NewFeetechBackend(cfg Config) (*FeetechBackend, error) {
	var (
		bus  *feetech.Bus
		port = cfg.SerialPort
		err  error
	)
	if port != "" {
		bus, err = openBus(port, cfg)
		if err != nil {
			return nil, err
		}
	} else {
		bus, port, err = scanPorts(cfg)
		if err != nil {
			return nil, err
		}
	}

	group := feetech.NewServoGroupByIDs(bus, cfg.PanID, cfg.TiltID)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque on %s: %w", port, err)
	}
	return &FeetechBackend{
		bus:   bus,
		group: group,
		ids:   map[string]int{Pan: cfg.PanID, Tilt: cfg.TiltID},
		port:  port,
	}, nil
}

func openBus(port string, cfg Config) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  cfg.BusTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return bus, nil
}

func scanPorts(cfg Config) (*feetech.Bus, string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, "", fmt.Errorf("list serial ports: %w", err)
	}
	lo, hi := min(cfg.PanID, cfg.TiltID), max(cfg.PanID, cfg.TiltID)
	logger := log.Component("ptz")
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		bus, err := openBus(port, cfg)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		found, err := bus.Scan(ctx, lo, hi)
		cancel()
		if err == nil && hasIDs(found, cfg.PanID, cfg.TiltID) {
			logger.Info("found pan/tilt servos", "port", port)
			return bus, port, nil
		}
		bus.Close()
	}
	return nil, "", fmt.Errorf("no serial port answers on servo ids %d and %d", cfg.PanID, cfg.TiltID)
}

func hasIDs(found []feetech.FoundServo, ids ...int) bool {
	seen := make(map[int]bool, len(found))
	for _, s := range found {
		seen[s.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return false
		}
	}
	return true
}

// SetAngle writes a goal position for one servo.
func (b *FeetechBackend) SetAngle(ctx context.Context, servo string, deg float64) error {
	id, ok := b.ids[servo]
	if !ok {
		return fmt.Errorf("%q: %w", servo, ErrUnknownServo)
	}
	if err := b.group.SetPositions(ctx, feetech.PositionMap{id: stsPosition(deg)}); err != nil {
		return fmt.Errorf("write %s position: %w", servo, err)
	}
	return nil
}

// Port reports which serial port the servos answered on.
func (b *FeetechBackend) Port() string { return b.port }

// Close releases torque and the serial port.
func (b *FeetechBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	disableErr := b.group.DisableAll(ctx)
	if err := b.bus.Close(); err != nil {
		return err
	}
	return disableErr
}

// stsPosition maps degrees, 90 being straight ahead, to encoder counts.
func stsPosition(deg float64) int {
	return stsCenter + int(math.Round((deg-90)*stsSteps/360))
}
