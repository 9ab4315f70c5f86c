package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/goburrow/modbus"
)

// SYL-53X2P holding registers.
const (
	regSetpointWrite uint16 = 0x0000
	regTemperature   uint16 = 0x1001
	regSetpoint      uint16 = 0x1002
	regOutputPower   uint16 = 0x1101
	regAlarmStatus   uint16 = 0x1201
)

// ModbusLink talks Modbus RTU to the instrument over a serial port.
type ModbusLink struct {
	mu      sync.Mutex
	handler *modbus.RTUClientHandler
	client  modbus.Client
	closed  bool
}

// DialModbus opens the serial port with the 8N1 framing the instrument requires.
func DialModbus(cfg Config) (*ModbusLink, error) {
	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.SlaveId = cfg.Address
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	return &ModbusLink{handler: h, client: modbus.NewClient(h)}, nil
}

func (m *ModbusLink) ReadTemperature(ctx context.Context) (float64, error) {
	raw, err := m.readRegister(ctx, regTemperature)
	if err != nil {
		return 0, fmt.Errorf("read temperature: %w", err)
	}
	return decodeTenths(raw), nil
}

func (m *ModbusLink) ReadSetpoint(ctx context.Context) (float64, error) {
	raw, err := m.readRegister(ctx, regSetpoint)
	if err != nil {
		return 0, fmt.Errorf("read setpoint: %w", err)
	}
	return decodeTenths(raw), nil
}

func (m *ModbusLink) ReadPower(ctx context.Context) (float64, error) {
	raw, err := m.readRegister(ctx, regOutputPower)
	if err != nil {
		return 0, fmt.Errorf("read output power: %w", err)
	}
	return float64(raw), nil
}

func (m *ModbusLink) ReadAlarm(ctx context.Context) (int, error) {
	raw, err := m.readRegister(ctx, regAlarmStatus)
	if err != nil {
		return 0, fmt.Errorf("read alarm status: %w", err)
	}
	return int(raw & 0x3), nil
}

// WriteSetpoint writes with function code 6 and echoes the value as stored (0.1 °C resolution).
func (m *ModbusLink) WriteSetpoint(ctx context.Context, c float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return 0, err
	}
	raw := encodeTenths(c)
	if _, err := m.client.WriteSingleRegister(regSetpointWrite, raw); err != nil {
		return 0, fmt.Errorf("write setpoint %.1f: %w", c, err)
	}
	return decodeTenths(raw), nil
}

func (m *ModbusLink) Simulated() bool { return false }

func (m *ModbusLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.handler.Close()
}

func (m *ModbusLink) ready(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *ModbusLink) readRegister(ctx context.Context, addr uint16) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(ctx); err != nil {
		return 0, err
	}
	b, err := m.client.ReadHoldingRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("register 0x%04X: short response (%d bytes)", addr, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// decodeTenths reads a signed one-decimal register value.
func decodeTenths(raw uint16) float64 {
	return float64(int16(raw)) / 10
}

func encodeTenths(c float64) uint16 {
	return uint16(int16(math.Round(c * 10)))
}
