package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"sunspec-monitor/config"
	"sunspec-monitor/internal/api"
	"sunspec-monitor/internal/collector"
	"sunspec-monitor/internal/logger"
	"sunspec-monitor/internal/metrics"
	"sunspec-monitor/internal/modbus"
	"sunspec-monitor/internal/mqtt"
	"sunspec-monitor/internal/solaredge"
	"sunspec-monitor/internal/storage"
	"sunspec-monitor/internal/sunspec"
)

var (
	configFile string
	verbose    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sunspec-monitor",
		Short:         "SunSpec Modbus monitor",
		Long:          "Polls SolarEdge inverters, meters and batteries over Modbus TCP and decodes their SunSpec registers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(serveCmd())
	root.AddCommand(readCmd())
	root.AddCommand(testCmd())
	root.AddCommand(registersCmd())
	return root
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:      level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	return cfg, log, nil
}

func buildDevices(cfg *config.Config, log *zap.Logger) ([]*sunspec.Device, error) {
	devices := make([]*sunspec.Device, 0, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		d, err := solaredge.Build(dc.Kind, dc.UnitID, solaredge.Options{
			Name:          dc.Name,
			Index:         dc.Index,
			MaxReadLength: cfg.Modbus.MaxReadLength,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring service",
		Long:  "Start the collector, API server, MQTT publisher and snapshot store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			devices, err := buildDevices(cfg, log)
			if err != nil {
				return err
			}

			client := modbus.NewClient(cfg.Modbus.Host, cfg.Modbus.Port, cfg.Modbus.Timeout)

			collCfg := collector.CollectorConfig{
				Connection: client,
				Devices:    devices,
				Interval:   cfg.Collector.Interval,
				Enabled:    cfg.Collector.Enabled,
				Logger:     log,
			}

			var db *storage.Database
			if cfg.Database.Enabled {
				db, err = storage.NewDatabase(cfg.Database.Path)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				if err := db.Prune(24 * time.Hour); err != nil {
					log.Warn("Failed to prune stale devices", zap.Error(err))
				}
				log.Info("Database opened", zap.String("path", cfg.Database.Path))
				collCfg.Store = db
			}

			if cfg.MQTT.Enabled {
				publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
					Broker:      cfg.MQTT.Broker,
					ClientID:    cfg.MQTT.ClientID,
					Username:    cfg.MQTT.Username,
					Password:    cfg.MQTT.Password,
					TopicPrefix: cfg.MQTT.TopicPrefix,
					Discovery:   cfg.MQTT.Discovery,
					Enabled:     true,
					Logger:      log,
				})
				if err != nil {
					log.Warn("MQTT connection failed", zap.Error(err))
				} else {
					collCfg.Publisher = publisher
				}
			}

			var m *metrics.Metrics
			if cfg.Metrics.Enabled {
				m = metrics.New()
				collCfg.Metrics = m
			}

			coll := collector.NewCollector(collCfg)

			// Setup context for graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := coll.Start(ctx); err != nil {
					log.Error("Collector error", zap.Error(err))
				}
			}()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:        cfg.API.Port,
					Collector:   coll,
					Database:    db,
					Metrics:     m,
					Config:      cfg,
					ConfigPath:  configFile,
					CORSOrigins: cfg.API.CORSOrigins,
					Logger:      log,
				})

				go func() {
					if err := server.Start(); err != nil && err != http.ErrServerClosed {
						log.Error("API server error", zap.Error(err))
					}
				}()
			}

			log.Info("SunSpec monitor started. Press Ctrl+C to stop.")

			<-ctx.Done()
			log.Info("Shutting down...")

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Stop(shutdownCtx); err != nil {
					log.Warn("API server shutdown failed", zap.Error(err))
				}
			}
			coll.Stop()

			return nil
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Read every configured device once",
		Long:  "Connect to the gateway, update every configured device once and print the reports as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			devices, err := buildDevices(cfg, log)
			if err != nil {
				return err
			}

			client := modbus.NewClient(cfg.Modbus.Host, cfg.Modbus.Port, cfg.Modbus.Timeout)
			defer client.Close()

			coll := collector.NewCollector(collector.CollectorConfig{
				Connection: client,
				Devices:    devices,
				Logger:     log,
			})

			snaps, err := coll.CollectOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read data: %w", err)
			}

			reports := make(map[string]map[string]string, len(snaps))
			for _, s := range snaps {
				reports[s.Name] = s.Report()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test connection to the gateway",
		Long:  "Read the common block of the first configured device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			devices, err := buildDevices(cfg, log)
			if err != nil {
				return err
			}
			d := devices[0]

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Testing connection to %s:%d (unit %d)...\n", cfg.Modbus.Host, cfg.Modbus.Port, d.UnitID())

			client := modbus.NewClient(cfg.Modbus.Host, cfg.Modbus.Port, cfg.Modbus.Timeout)
			defer client.Close()

			if err := client.Connect(); err != nil {
				fmt.Fprintf(out, "Connection FAILED: %v\n", err)
				return err
			}

			d.Update(cmd.Context(), client)
			if d.Populated() == 0 {
				err := fmt.Errorf("unit %d did not answer", d.UnitID())
				fmt.Fprintf(out, "Connection FAILED: %v\n", err)
				return err
			}

			fmt.Fprintln(out, "Connection SUCCESS!")
			printInfo(out, d)
			return nil
		},
	}
}

func printInfo(out io.Writer, d *sunspec.Device) {
	fmt.Fprintf(out, "\n%s (%s):\n", d.Name(), d.Kind())
	for _, key := range []string{"c_manufacturer", "c_model", "c_version", "c_serialnumber", "c_sunspec_did"} {
		r, ok := d.Registers().Lookup(key)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-16s %s\n", r.DisplayLabel()+":", d.Display(key))
	}
	fmt.Fprintf(out, "  %-16s %d/%d\n", "Registers:", d.Populated(), d.Expected())
}

func registersCmd() *cobra.Command {
	var (
		index         int
		format        string
		maxReadLength int
	)

	cmd := &cobra.Command{
		Use:       "registers <kind>",
		Short:     "Dump a device register map",
		Long:      "Print the register map of a device kind and the read groups it produces",
		Args:      cobra.ExactArgs(1),
		ValidArgs: solaredge.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxReadLength > sunspec.MaxReadLength {
				return fmt.Errorf("max-read-length %d exceeds %d", maxReadLength, sunspec.MaxReadLength)
			}
			regs, base, err := solaredge.RegisterMap(args[0], index)
			if err != nil {
				return err
			}

			type group struct {
				Start uint16   `json:"start" yaml:"start"`
				Count uint16   `json:"count" yaml:"count"`
				Keys  []string `json:"keys" yaml:"keys"`
			}
			dump := struct {
				Kind      string             `json:"kind" yaml:"kind"`
				Base      uint16             `json:"base" yaml:"base"`
				Registers []sunspec.Register `json:"registers" yaml:"registers"`
				Groups    []group            `json:"groups" yaml:"groups"`
			}{Kind: args[0], Base: base, Registers: regs.Sorted()}

			for _, g := range sunspec.Group(regs.Registers(), maxReadLength) {
				start, count := sunspec.Span(g)
				keys := make([]string, len(g))
				for i, r := range g {
					keys[i] = r.Key
				}
				dump.Groups = append(dump.Groups, group{Start: start, Count: count, Keys: keys})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(dump)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(dump)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "meter or battery slot")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml|json)")
	cmd.Flags().IntVar(&maxReadLength, "max-read-length", sunspec.DefaultMaxReadLength, "maximum registers per read")
	return cmd
}
