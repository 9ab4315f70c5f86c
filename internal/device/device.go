package device

import (
	"context"
	"errors"
	"strings"
	"time"

	"auber_controller/internal/logger"
)

// SimulationPort selects the simulated link instead of a serial port.
const SimulationPort = "Simulation"

var ErrClosed = errors.New("device: link is closed")

// Link is the capability the controller loop needs from a temperature controller.
type Link interface {
	ReadTemperature(ctx context.Context) (float64, error) // °C
	ReadSetpoint(ctx context.Context) (float64, error)    // °C
	ReadPower(ctx context.Context) (float64, error)       // % main output
	ReadAlarm(ctx context.Context) (int, error)           // bit 0: alarm 1, bit 1: alarm 2
	// WriteSetpoint returns the setpoint the instrument holds after the write.
	WriteSetpoint(ctx context.Context, c float64) (float64, error)
	Simulated() bool
	Close() error
}

// Config describes how to reach the instrument.
type Config struct {
	Port             string
	Address          byte
	BaudRate         int
	Timeout          time.Duration
	TemperatureLimit float64 // °C, setpoint ceiling
}

// DefaultConfig matches the SYL-53X2P factory settings.
func DefaultConfig() Config {
	return Config{
		Port:             SimulationPort,
		Address:          1,
		BaudRate:         9600,
		Timeout:          2 * time.Second,
		TemperatureLimit: 1500,
	}
}

// Open connects to the configured port and falls back to the simulator when the port is
// "Simulation" or the instrument cannot be reached. The result always enforces the ceiling.
func Open(ctx context.Context, cfg Config, log *logger.Logger) Link {
	if strings.EqualFold(strings.TrimSpace(cfg.Port), SimulationPort) || cfg.Port == "" {
		log.Infow("device_simulation", "reason", "simulation port selected")
		return NewGuard(NewSimulator(), cfg.TemperatureLimit, log)
	}

	link, err := DialModbus(cfg)
	if err == nil {
		// probe like the front panel does: a temperature read must succeed
		if _, err = link.ReadTemperature(ctx); err != nil {
			_ = link.Close()
		}
	}
	if err != nil {
		log.Warnw("device_fallback",
			"port", cfg.Port, "address", cfg.Address, "baud_rate", cfg.BaudRate, "err", err)
		return NewGuard(NewSimulator(), cfg.TemperatureLimit, log)
	}

	log.Infow("device_connected", "port", cfg.Port, "address", cfg.Address, "baud_rate", cfg.BaudRate)
	return NewGuard(link, cfg.TemperatureLimit, log)
}
