package modbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunspec-monitor/internal/sunspec"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"illegal address", modbus.ErrIllegalDataAddress, sunspec.ErrProtocol},
		{"busy", modbus.ErrServerDeviceBusy, sunspec.ErrProtocol},
		{"gateway", modbus.ErrGWTargetFailedToRespond, sunspec.ErrProtocol},
		{"timeout", modbus.ErrRequestTimedOut, sunspec.ErrTransport},
		{"other", errors.New("connection reset by peer"), sunspec.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestReadHonoursCancelledContext(t *testing.T) {
	c := NewClient("127.0.0.1", 1502, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadHoldingRegisters(ctx, 0x9C40, 2, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.IsConnected())
}

func TestURL(t *testing.T) {
	assert.Equal(t, "tcp://192.168.1.20:1502", NewClient("192.168.1.20", 1502, time.Second).URL())
}

// unitHandler answers holding register reads with unit*1000 + address
// offset and rejects reads at 0x9999.
type unitHandler struct{}

func (unitHandler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (unitHandler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (unitHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		return nil, modbus.ErrIllegalFunction
	}
	if req.Addr == 0x9999 {
		return nil, modbus.ErrIllegalDataAddress
	}
	out := make([]uint16, req.Quantity)
	for i := range out {
		out[i] = uint16(req.UnitId)*1000 + uint16(i)
	}
	return out, nil
}

func (unitHandler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func startServer(t *testing.T, port int) *modbus.ModbusServer {
	t.Helper()
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        fmt.Sprintf("tcp://127.0.0.1:%d", port),
		Timeout:    5 * time.Second,
		MaxClients: 4,
	}, unitHandler{})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	return server
}

func TestClientAgainstServer(t *testing.T) {
	port := freePort(t)
	server := startServer(t, port)

	c := NewClient("127.0.0.1", port, time.Second)
	defer c.Close()
	ctx := context.Background()

	words, err := c.ReadHoldingRegisters(ctx, 0x9C40, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1000, 1001, 1002}, words)

	words, err = c.ReadHoldingRegisters(ctx, 0x9C40, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2000, 2001, 2002}, words)

	// an exception means the unit answered, so the link stays up
	_, err = c.ReadHoldingRegisters(ctx, 0x9999, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, sunspec.ErrProtocol)
	assert.ErrorIs(t, err, modbus.ErrIllegalDataAddress)
	assert.True(t, c.IsConnected())

	require.NoError(t, server.Stop())

	_, err = c.ReadHoldingRegisters(ctx, 0x9C40, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, sunspec.ErrTransport)
	assert.False(t, c.IsConnected())

	// the next read dials again
	server = startServer(t, port)
	defer server.Stop()

	words, err = c.ReadHoldingRegisters(ctx, 0x9C40, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2000}, words)
	assert.True(t, c.IsConnected())
}

func TestReconnect(t *testing.T) {
	port := freePort(t)
	server := startServer(t, port)
	defer server.Stop()

	c := NewClient("127.0.0.1", port, time.Second)
	defer c.Close()

	require.NoError(t, c.Connect())
	require.NoError(t, c.Reconnect())
	assert.True(t, c.IsConnected())

	words, err := c.ReadHoldingRegisters(context.Background(), 0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{3000}, words)
}
