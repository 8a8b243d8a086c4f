package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"sunspec-monitor/internal/sunspec"
)

// Client is a Modbus TCP connection shared by every unit behind one
// gateway. Transactions are serialized; the unit id is set per request.
type Client struct {
	client  *modbus.ModbusClient
	mu      sync.Mutex
	host    string
	port    int
	timeout time.Duration
}

var _ sunspec.Transport = (*Client)(nil)

func NewClient(host string, port int, timeout time.Duration) *Client {
	return &Client{
		host:    host,
		port:    port,
		timeout: timeout,
	}
}

func (c *Client) URL() string {
	return fmt.Sprintf("tcp://%s:%d", c.host, c.port)
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

func (c *Client) connect() error {
	if c.client != nil {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     c.URL(),
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create modbus client: %w", err)
	}

	if err := client.Open(); err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %w", sunspec.ErrTransport, c.URL(), err)
	}

	c.client = client
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Client) close() error {
	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// ReadHoldingRegisters reads quantity words starting at address from
// unitID. The connection is opened lazily and dropped after a transport
// failure so the next call dials again.
func (c *Client) ReadHoldingRegisters(ctx context.Context, address, quantity uint16, unitID uint8) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, err
	}

	if err := c.client.SetUnitId(unitID); err != nil {
		return nil, fmt.Errorf("failed to select unit %d: %w", unitID, err)
	}

	regs, err := c.client.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		err = classify(err)
		if errors.Is(err, sunspec.ErrTransport) {
			c.close()
		}
		return nil, fmt.Errorf("failed to read %d holding registers at 0x%04X from unit %d: %w", quantity, address, unitID, err)
	}

	return regs, nil
}

func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return c.connect()
}

// Exception responses mean the unit answered; anything else is a link
// problem.
var exceptions = []error{
	modbus.ErrIllegalFunction,
	modbus.ErrIllegalDataAddress,
	modbus.ErrIllegalDataValue,
	modbus.ErrServerDeviceFailure,
	modbus.ErrAcknowledge,
	modbus.ErrServerDeviceBusy,
	modbus.ErrMemoryParityError,
	modbus.ErrGWPathUnavailable,
	modbus.ErrGWTargetFailedToRespond,
}

func classify(err error) error {
	for _, e := range exceptions {
		if errors.Is(err, e) {
			return fmt.Errorf("%w: %w", sunspec.ErrProtocol, err)
		}
	}
	return fmt.Errorf("%w: %w", sunspec.ErrTransport, err)
}
