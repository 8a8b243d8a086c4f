package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sunspec-monitor/config"
	"sunspec-monitor/internal/collector"
	"sunspec-monitor/internal/metrics"
	"sunspec-monitor/internal/modbus"
	"sunspec-monitor/internal/storage"
	"sunspec-monitor/internal/sunspec"
)

type Server struct {
	router      *gin.Engine
	server      *http.Server
	collector   *collector.Collector
	db          *storage.Database
	metrics     *metrics.Metrics
	port        int
	logger      *zap.Logger
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
}

type ServerConfig struct {
	Port        int
	Collector   *collector.Collector
	Database    *storage.Database
	Metrics     *metrics.Metrics
	Config      *config.Config
	ConfigPath  string
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.CORSOrigins
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{"*"}
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:     router,
		collector:  cfg.Collector,
		db:         cfg.Database,
		metrics:    cfg.Metrics,
		port:       cfg.Port,
		logger:     logger,
		config:     cfg.Config,
		configPath: cfg.ConfigPath,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthHandler)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// API routes
	api := s.router.Group("/api/v1")
	{
		api.GET("/devices", s.devicesHandler)
		api.GET("/devices/:name", s.deviceHandler)
		api.GET("/devices/:name/readings", s.readingsHandler)
		api.GET("/devices/:name/registers", s.registersHandler)

		// Config routes
		api.GET("/config/modbus", s.getModbusConfigHandler)
		api.PUT("/config/modbus", s.updateModbusConfigHandler)
		api.POST("/config/modbus/test", s.testModbusConfigHandler)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", zap.Int("port", s.port))
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// DeviceSummary is the list view of a device.
type DeviceSummary struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	UnitID    uint8     `json:"unit_id"`
	Populated int       `json:"populated"`
	Expected  int       `json:"expected"`
	Online    bool      `json:"online"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

func (s *Server) healthHandler(c *gin.Context) {
	latest := s.collector.Latest()
	online := 0
	for _, snap := range latest {
		if snap.Populated > 0 {
			online++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"collecting":     s.collector.IsCollecting(),
		"devices":        len(s.collector.Devices()),
		"devices_online": online,
		"timestamp":      time.Now(),
	})
}

func (s *Server) devicesHandler(c *gin.Context) {
	latest := s.collector.Latest()
	if len(latest) > 0 {
		out := make([]DeviceSummary, 0, len(latest))
		for _, snap := range latest {
			out = append(out, DeviceSummary{
				Name:      snap.Name,
				Kind:      snap.Kind,
				UnitID:    snap.UnitID,
				Populated: snap.Populated,
				Expected:  snap.Expected,
				Online:    snap.Populated > 0,
				UpdatedAt: snap.Timestamp,
				Source:    "live",
			})
		}
		c.JSON(http.StatusOK, out)
		return
	}

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No data available yet"})
		return
	}

	states, err := s.db.Devices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]DeviceSummary, 0, len(states))
	for _, st := range states {
		out = append(out, DeviceSummary{
			Name:      st.Name,
			Kind:      st.Kind,
			UnitID:    st.UnitID,
			Populated: st.Populated,
			Expected:  st.Expected,
			Online:    st.Populated > 0,
			UpdatedAt: st.UpdatedAt,
			Source:    "stored",
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deviceHandler(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":      snap.Name,
		"kind":      snap.Kind,
		"unit_id":   snap.UnitID,
		"timestamp": snap.Timestamp,
		"populated": snap.Populated,
		"expected":  snap.Expected,
		"report":    snap.Report(),
	})
}

func (s *Server) readingsHandler(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Readings)
}

// snapshot finds the named device in the collector, falling back to the
// store after a restart. It writes the error response itself.
func (s *Server) snapshot(c *gin.Context) (sunspec.Snapshot, bool) {
	name := c.Param("name")

	if snap, ok := s.collector.LatestFor(name); ok {
		return snap, true
	}

	_, configured := s.collector.Device(name)

	if s.db != nil {
		state, err := s.db.Device(name)
		switch {
		case err == nil:
			rows, err := s.db.Readings(name)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return sunspec.Snapshot{}, false
			}
			snap := sunspec.Snapshot{
				Name:      state.Name,
				Kind:      state.Kind,
				UnitID:    state.UnitID,
				Timestamp: state.UpdatedAt,
				Populated: state.Populated,
				Expected:  state.Expected,
				Values:    make(map[string]sunspec.Value, len(rows)),
				Readings:  make([]sunspec.Reading, 0, len(rows)),
			}
			for _, row := range rows {
				r := row.Reading()
				snap.Readings = append(snap.Readings, r)
				snap.Values[r.Key] = r.Value
			}
			return snap, true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return sunspec.Snapshot{}, false
		}
	}

	if configured {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No data available yet"})
	} else {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Unknown device %q", name)})
	}
	return sunspec.Snapshot{}, false
}

// GroupInfo describes one read transaction of a device.
type GroupInfo struct {
	Start uint16   `json:"start"`
	Count uint16   `json:"count"`
	Keys  []string `json:"keys"`
}

func (s *Server) registersHandler(c *gin.Context) {
	d, ok := s.collector.Device(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Unknown device %q", c.Param("name"))})
		return
	}

	groups := d.Groups()
	infos := make([]GroupInfo, 0, len(groups))
	for _, g := range groups {
		start, count := sunspec.Span(g)
		keys := make([]string, len(g))
		for i, r := range g {
			keys[i] = r.Key
		}
		infos = append(infos, GroupInfo{Start: start, Count: count, Keys: keys})
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      d.Name(),
		"kind":      d.Kind(),
		"unit_id":   d.UnitID(),
		"base":      d.Base(),
		"registers": d.Registers().Sorted(),
		"groups":    infos,
	})
}

// ModbusConfigRequest represents a connection update request
type ModbusConfigRequest struct {
	Host           string `json:"host" binding:"required"`
	Port           int    `json:"port" binding:"required,min=1,max=65535"`
	TimeoutSeconds int    `json:"timeout_seconds" binding:"required,min=1,max=60"`
}

func (s *Server) getModbusConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"host":            s.config.Modbus.Host,
		"port":            s.config.Modbus.Port,
		"timeout_seconds": int(s.config.Modbus.Timeout.Seconds()),
		"max_read_length": s.config.Modbus.MaxReadLength,
	})
}

// Test a gateway configuration without applying it
func (s *Server) testModbusConfigHandler(c *gin.Context) {
	var req ModbusConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "success": false})
		return
	}

	client := modbus.NewClient(req.Host, req.Port, time.Duration(req.TimeoutSeconds)*time.Second)
	defer client.Close()

	devices := s.collector.Devices()
	if len(devices) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "No devices configured"})
		return
	}
	first := devices[0]

	// The common block is at the start of every map; one short read is
	// enough to prove the unit answers.
	regs := first.Registers().Sorted()
	if len(regs) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Device has no registers"})
		return
	}
	words, err := client.ReadHoldingRegisters(c.Request.Context(), regs[0].Address, regs[0].Length, first.UnitID())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Connection failed: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  first.Name(),
		"key":     regs[0].Key,
		"value":   sunspec.Decode(words, regs[0].Type, regs[0].Order),
		"message": "Connection successful",
	})
}

func (s *Server) updateModbusConfigHandler(c *gin.Context) {
	var req ModbusConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	client := modbus.NewClient(req.Host, req.Port, timeout)

	if err := s.collector.UpdateConnection(c.Request.Context(), client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Configuration test failed: %v", err),
		})
		return
	}

	s.configMutex.Lock()
	s.config.Modbus.Host = req.Host
	s.config.Modbus.Port = req.Port
	s.config.Modbus.Timeout = timeout
	s.configMutex.Unlock()

	if err := s.saveConfigToFile(); err != nil {
		s.logger.Warn("Failed to save config to file", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"message": "Configuration applied but not persisted to file",
			"warning": err.Error(),
		})
		return
	}

	s.logger.Info("Modbus configuration updated", zap.String("host", req.Host), zap.Int("port", req.Port))
	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated successfully",
	})
}

// saveConfigToFile rewrites the modbus section of the config file and
// keeps every other key as it was.
func (s *Server) saveConfigToFile() error {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	configPath := s.configPath
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	v.Set("modbus.host", s.config.Modbus.Host)
	v.Set("modbus.port", s.config.Modbus.Port)
	v.Set("modbus.timeout", s.config.Modbus.Timeout.String())

	return v.WriteConfig()
}
