// v0
// cmd/cracfuzzy/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nrgchamp/cracfuzzy/internal/api"
	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/config"
	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/logging"
	"nrgchamp/cracfuzzy/internal/report"
	"nrgchamp/cracfuzzy/internal/ruleset"
	"nrgchamp/cracfuzzy/internal/service"
	"nrgchamp/cracfuzzy/internal/simulation"
)

func rootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Fuzzy CRAC controller and data-hall thermal simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(&logLevel),
		simulateCmd(&logLevel),
		inferCmd(),
		rulesCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func serveCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the configured event sinks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.LogDir, appName, logging.ParseLevel(*logLevel))
			if err != nil {
				return err
			}
			defer closer.Close()
			logger.Info("config_loaded",
				slog.String("properties", cfg.PropertiesPath),
				slog.String("httpBind", cfg.HTTPBind),
				slog.String("controller", cfg.Controller),
				slog.String("controllerFile", cfg.ControllerFile),
				slog.String("profile", cfg.Profile),
			)

			svc, err := service.New(cfg, logger)
			if err != nil {
				logger.Error("service_init_failed", slog.Any("err", err))
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.Run(ctx)
		},
	}
}

func simulateCmd(logLevel *string) *cobra.Command {
	var (
		req       command.SimulateRequest
		setpoint  float64
		initial   float64
		horizon   int
		external  float64
		load      float64
		seed      int64
		noise     bool
		chartPath string
		csvPath   string
		records   bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one closed-loop simulation and print its summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("setpoint") {
				req.Setpoint = &setpoint
			}
			if flags.Changed("initial") {
				req.InitialTemp = &initial
			}
			if flags.Changed("horizon") {
				req.Horizon = &horizon
			}
			if flags.Changed("external") {
				req.ExternalTemp = &external
			}
			if flags.Changed("load") {
				req.ThermalLoad = &load
			}
			if flags.Changed("seed") {
				req.Seed = &seed
			}
			if flags.Changed("noise") {
				req.Noise = &noise
			}
			zero := 0
			req.PaceMS = &zero

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logging.ParseLevel(*logLevel)}))
			res, err := simulate(cmd.Context(), cfg, req, logger)
			if res == nil {
				return err
			}
			if err != nil {
				logger.Error("simulation_failed", slog.Any("err", err))
			}
			if chartPath != "" {
				if err := writeFile(chartPath, func(w io.Writer) error {
					return report.WriteChart(w, res, report.ChartOptions{Safety: cfg.Alerts.Safety})
				}); err != nil {
					return err
				}
			}
			if csvPath != "" {
				if err := writeFile(csvPath, func(w io.Writer) error { return report.WriteCSV(w, res) }); err != nil {
					return err
				}
			}

			var out any = api.Summarize(res)
			if records {
				out = struct {
					*api.RunSummary
					Records []simulation.Record `json:"records"`
				}{api.Summarize(res), res.Records}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(out); encErr != nil {
				return encErr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.Float64Var(&setpoint, "setpoint", 22, "Setpoint (°C)")
	f.Float64Var(&initial, "initial", 22, "Initial room temperature (°C); defaults to the setpoint")
	f.IntVar(&horizon, "horizon", simulation.DefaultHorizon, "Number of one-minute steps")
	f.StringVar(&req.Profile, "profile", "", "Disturbance profile (constant, daily, simplex, business)")
	f.Float64Var(&external, "external", 25, "Base external temperature (°C)")
	f.Float64Var(&load, "load", 40, "Base thermal load (%)")
	f.Int64Var(&seed, "seed", 1, "Seed of the stochastic profiles")
	f.BoolVar(&noise, "noise", false, "Enable profile noise")
	f.StringVar(&chartPath, "chart", "", "Write a PNG chart of the run to this path")
	f.StringVar(&csvPath, "csv", "", "Write the step history as CSV to this path")
	f.BoolVar(&records, "records", false, "Include the step history in the JSON output")
	return cmd
}

func simulate(ctx context.Context, cfg *config.AppConfig, req command.SimulateRequest, logger *slog.Logger) (*simulation.Result, error) {
	fc, _, err := service.BuildController(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := fuzzy.NewEngine(fc)
	if err != nil {
		return nil, err
	}
	p, err := service.RunParams(cfg, req)
	if err != nil {
		return nil, err
	}
	alerts := simulation.ObserverFuncs{Alert: func(e simulation.AlertEvent) {
		logger.Warn("alert", slog.Int("step", e.Step), slog.String("kind", e.Kind), slog.String("severity", e.Severity), slog.Float64("temperature", e.Temperature))
	}}
	sim, err := simulation.New(simulation.Options{
		Engine:    engine,
		Plant:     cfg.Plant,
		Alerts:    cfg.Alerts,
		KPI:       cfg.KPI,
		Limits:    cfg.Limits,
		Observers: []simulation.Observer{alerts},
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return sim.Run(ctx, p)
}

func inferCmd() *cobra.Command {
	var (
		errVal, deltaVal, external, load float64
		inputs                           map[string]string
	)
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Run one point inference and print the output with its diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fc, _, err := service.BuildController(cfg)
			if err != nil {
				return err
			}
			engine, err := fuzzy.NewEngine(fc)
			if err != nil {
				return err
			}
			req := command.InferRequest{Error: &errVal, DeltaError: &deltaVal}
			if cmd.Flags().Changed("external") {
				req.ExternalTemp = &external
			}
			if cmd.Flags().Changed("load") {
				req.ThermalLoad = &load
			}
			if len(inputs) > 0 {
				req.Inputs = make(map[string]float64, len(inputs))
				for k, v := range inputs {
					var x float64
					if _, err := fmt.Sscan(v, &x); err != nil {
						return fmt.Errorf("--input %s=%s: %w", k, v, err)
					}
					req.Inputs[k] = x
				}
			}
			res, err := service.PointInference(engine, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&errVal, "error", 0, "Temperature error T - setpoint (°C)")
	f.Float64Var(&deltaVal, "delta-error", 0, "Change of the error since the previous step (°C)")
	f.Float64Var(&external, "external", 25, "External temperature (°C), for controllers that use it")
	f.Float64Var(&load, "load", 40, "Thermal load (%), for controllers that use it")
	f.StringToStringVar(&inputs, "input", nil, "Extra named inputs, e.g. --input humidity=40")
	return cmd
}

func rulesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the configured controller definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, def, err := service.BuildController(cfg)
			if err != nil {
				return err
			}
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(def)
			}
			return ruleset.Encode(cmd.OutOrStdout(), def, ruleset.Format(format))
		},
	}
	cmd.Flags().StringVar(&format, "format", string(ruleset.FormatYAML), "Output format (yaml, toml, json)")
	return cmd
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
