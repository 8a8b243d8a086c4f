package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sunspec-monitor/internal/metrics"
	"sunspec-monitor/internal/storage"
	"sunspec-monitor/internal/sunspec"
)

// ErrNoData is returned when a cycle could not read a single register
// group from any device, even after reconnecting.
var ErrNoData = errors.New("no register group could be read")

// Connection is the shared bus connection. *modbus.Client implements it.
type Connection interface {
	sunspec.Transport
	Connect() error
	Reconnect() error
	Close() error
}

type Store interface {
	SaveSnapshot(state storage.DeviceState, readings []sunspec.Reading) error
	Close() error
}

type Publisher interface {
	Publish(snap sunspec.Snapshot) error
	Close()
}

type Collector struct {
	devices   []*sunspec.Device
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	interval  time.Duration
	enabled   bool
	logger    *zap.Logger

	// cycle serializes collections and connection swaps.
	cycle sync.Mutex

	mu           sync.RWMutex
	conn         Connection
	latest       map[string]sunspec.Snapshot
	isCollecting bool
}

type CollectorConfig struct {
	Connection Connection
	Devices    []*sunspec.Device
	Store      Store
	Publisher  Publisher
	Metrics    *metrics.Metrics
	Interval   time.Duration
	Enabled    bool
	Logger     *zap.Logger
}

func NewCollector(cfg CollectorConfig) *Collector {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		conn:      cfg.Connection,
		devices:   cfg.Devices,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		interval:  cfg.Interval,
		enabled:   cfg.Enabled,
		logger:    logger,
		latest:    make(map[string]sunspec.Snapshot, len(cfg.Devices)),
	}
}

func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled {
		c.logger.Info("Collector is disabled")
		return nil
	}

	c.setCollecting(true)
	defer c.setCollecting(false)

	c.logger.Info("Starting collector", zap.Duration("interval", c.interval), zap.Int("devices", len(c.devices)))

	// Initial collection
	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Collector stopped")
			return nil
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	snaps, err := c.CollectOnce(ctx)
	if err != nil {
		c.logger.Error("Collection failed", zap.Error(err))
		return
	}
	for _, s := range snaps {
		c.logger.Info("Collected",
			zap.String("device", s.Name),
			zap.Int("populated", s.Populated),
			zap.Int("expected", s.Expected))
	}
}

// CollectOnce updates every device in configuration order. When no group
// of any device could be read the connection is reset and the cycle is
// retried once. Snapshots are stored, published and exported even when
// some groups failed.
func (c *Collector) CollectOnce(ctx context.Context) ([]sunspec.Snapshot, error) {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	conn := c.connection()
	if conn == nil {
		return nil, errors.New("collector has no connection")
	}

	if err := conn.Connect(); err != nil {
		c.logger.Warn("Error connecting to gateway", zap.Error(err))
	}

	if c.poll(ctx, conn) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.logger.Warn("No register group could be read, reconnecting")
		if err := conn.Reconnect(); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
		if c.poll(ctx, conn) == 0 {
			return nil, ErrNoData
		}
	}

	return c.record(time.Now()), nil
}

// UpdateConnection swaps the bus connection after checking that the new
// one can read at least one register group.
func (c *Collector) UpdateConnection(ctx context.Context, conn Connection) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	if err := conn.Connect(); err != nil {
		return fmt.Errorf("failed to connect with new configuration: %w", err)
	}
	if c.poll(ctx, conn) == 0 {
		conn.Close()
		return fmt.Errorf("failed to read data with new configuration: %w", ErrNoData)
	}

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	c.record(time.Now())
	c.logger.Info("Connection configuration updated")
	return nil
}

// poll updates every device and returns how many group reads succeeded.
func (c *Collector) poll(ctx context.Context, conn Connection) int {
	counter := &countingTransport{next: conn}
	var t sunspec.Transport = counter
	if c.metrics != nil {
		t = c.metrics.Instrument(counter)
	}

	for _, d := range c.devices {
		if ctx.Err() != nil {
			break
		}
		d.Update(ctx, t)
	}
	return int(counter.ok.Load())
}

func (c *Collector) record(at time.Time) []sunspec.Snapshot {
	snaps := make([]sunspec.Snapshot, 0, len(c.devices))
	for _, d := range c.devices {
		snaps = append(snaps, d.Snapshot(at))
	}

	c.mu.Lock()
	for _, s := range snaps {
		c.latest[s.Name] = s
	}
	c.mu.Unlock()

	for _, s := range snaps {
		if c.metrics != nil {
			c.metrics.Observe(s.Name, s.Readings, s.Populated, s.Expected, s.Timestamp)
		}
		if c.store != nil {
			state := storage.DeviceState{
				Name:      s.Name,
				Kind:      s.Kind,
				UnitID:    s.UnitID,
				Populated: s.Populated,
				Expected:  s.Expected,
				UpdatedAt: s.Timestamp,
			}
			if err := c.store.SaveSnapshot(state, s.Readings); err != nil {
				c.logger.Error("Error saving snapshot", zap.String("device", s.Name), zap.Error(err))
			}
		}
		if c.publisher != nil {
			if err := c.publisher.Publish(s); err != nil {
				c.logger.Error("Error publishing to MQTT", zap.String("device", s.Name), zap.Error(err))
			}
		}
	}
	return snaps
}

// Latest returns the last snapshot of every device in configuration order.
// Devices not collected yet are left out.
func (c *Collector) Latest() []sunspec.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]sunspec.Snapshot, 0, len(c.latest))
	for _, d := range c.devices {
		if s, ok := c.latest[d.Name()]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Collector) LatestFor(name string) (sunspec.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.latest[name]
	return s, ok
}

func (c *Collector) Devices() []*sunspec.Device {
	return c.devices
}

func (c *Collector) Device(name string) (*sunspec.Device, bool) {
	for _, d := range c.devices {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCollecting
}

func (c *Collector) setCollecting(v bool) {
	c.mu.Lock()
	c.isCollecting = v
	c.mu.Unlock()
}

func (c *Collector) connection() Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

type countingTransport struct {
	next sunspec.Transport
	ok   atomic.Int64
}

func (t *countingTransport) ReadHoldingRegisters(ctx context.Context, address, quantity uint16, unitID uint8) ([]uint16, error) {
	words, err := t.next.ReadHoldingRegisters(ctx, address, quantity, unitID)
	if err == nil {
		t.ok.Add(1)
	}
	return words, err
}
