// v0
// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nrgchamp/cracfuzzy/internal/api"
	"nrgchamp/cracfuzzy/internal/circuitbreaker"
	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/config"
	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/observability"
	"nrgchamp/cracfuzzy/internal/report"
	"nrgchamp/cracfuzzy/internal/ruleset"
	"nrgchamp/cracfuzzy/internal/simulation"
	"nrgchamp/cracfuzzy/internal/transport"
)

const shutdownTimeout = 10 * time.Second

var ErrClosed = errors.New("service closed")

// sink is one event destination with its dispatcher.
type sink struct {
	disp      *transport.Dispatcher
	connected func() bool
	breaker   *circuitbreaker.Breaker
}

// Service wires the controller, the simulator, the event sinks and the HTTP
// API. It implements api.Backend and command.Controller.
type Service struct {
	cfg     *config.AppConfig
	log     *slog.Logger
	def     *ruleset.Definition
	engine  *fuzzy.Engine
	sim     *simulation.Simulator
	metrics *observability.Metrics
	health  *api.HealthState
	handler http.Handler

	sinks    []sink
	mqtt     mqtt.Client
	listener atomic.Pointer[transport.CommandListener]

	runCtx    context.Context
	stopRuns  context.CancelFunc
	runsMu    sync.Mutex // orders runs.Add against Close
	closing   bool
	runs      sync.WaitGroup
	closeOnce sync.Once
}

// New builds the service. Sinks that cannot connect are logged and left
// out; the simulator works without any.
func New(cfg *config.AppConfig, logger *slog.Logger) (*Service, error) {
	fc, def, err := BuildController(cfg)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	engine, err := fuzzy.NewEngine(fc)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", def.Name, err)
	}
	logger.Info("controller_loaded",
		slog.String("name", def.Name),
		slog.Int("inputs", len(engine.Inputs())),
		slog.Int("rules", len(engine.Rules())),
		slog.Float64("resolution", engine.Resolution()),
		slog.Float64("fallback", engine.FallbackValue()),
	)

	runCtx, stopRuns := context.WithCancel(context.Background())
	s := &Service{
		cfg:      cfg,
		log:      logger,
		def:      def,
		engine:   engine,
		metrics:  observability.NewMetrics(),
		health:   api.NewHealthState(),
		runCtx:   runCtx,
		stopRuns: stopRuns,
	}
	s.connectSinks()

	observers := []simulation.Observer{s.metrics}
	for _, sk := range s.sinks {
		observers = append(observers, sk.disp)
	}
	s.sim, err = simulation.New(simulation.Options{
		Engine:    engine,
		Plant:     cfg.Plant,
		Alerts:    cfg.Alerts,
		KPI:       cfg.KPI,
		Limits:    cfg.Limits,
		Observers: observers,
		Logger:    logger.With(slog.String("component", "simulator")),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("simulator: %w", err)
	}

	s.handler = api.NewRouter(api.Deps{
		Logger:  logger.With(slog.String("component", "http")),
		Health:  s.health,
		Backend: s,
		Metrics: s.metrics,
		Chart:   report.ChartOptions{Safety: cfg.Alerts.Safety},
	})

	if s.mqtt != nil {
		l := transport.NewCommandListener(runCtx, s, transport.NewMQTTSink(s.mqtt, cfg.MQTTTopicPrefix, false), cfg.MQTTTopicPrefix, logger.With(slog.String("component", "mqtt_cmd")))
		s.listener.Store(l)
		if err := l.Subscribe(s.mqtt); err != nil {
			logger.Warn("command_listener_unavailable", slog.Any("err", err))
		}
	}
	return s, nil
}

func (s *Service) connectSinks() {
	cfg := s.cfg
	opts := func() transport.DispatcherOptions {
		return transport.DispatcherOptions{
			Buffer:      cfg.DispatchBuffer,
			StreamEvery: cfg.StreamEvery,
			Logger:      s.log.With(slog.String("component", "dispatcher")),
			Stats:       s.metrics,
		}
	}

	if cfg.MQTTBroker != "" {
		mlog := s.log.With(slog.String("component", "mqtt"))
		client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, mlog, func(c mqtt.Client) {
			if l := s.listener.Load(); l != nil {
				_ = l.Subscribe(c)
			}
		})
		if err != nil {
			s.log.Error("sink_unavailable", slog.String("sink", "mqtt"), slog.Any("err", err))
		} else {
			s.mqtt = client
			ms := transport.NewMQTTSink(client, cfg.MQTTTopicPrefix, true)
			s.sinks = append(s.sinks, sink{disp: transport.NewDispatcher(ms, opts()), connected: ms.Connected})
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		kb, err := circuitbreaker.NewKafkaBreakerFromEnv("kafka-events", s.log.With(slog.String("component", "breaker")), func(name string, _, to circuitbreaker.State) {
			s.metrics.SetCircuitBreakerState(name, to)
		})
		if err != nil {
			s.log.Error("sink_unavailable", slog.String("sink", "kafka"), slog.Any("err", err))
		} else {
			w := transport.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
			ks := transport.NewKafkaSink(circuitbreaker.NewCBKafkaWriter(w, kb), w)
			s.sinks = append(s.sinks, sink{
				disp:      transport.NewDispatcher(ks, opts()),
				connected: func() bool { return kb.Breaker() == nil || kb.Breaker().State() != circuitbreaker.Open },
				breaker:   kb.Breaker(),
			})
			s.log.Info("kafka_sink_configured", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic), slog.Bool("breaker", kb.Enabled()))
		}
	}

	if cfg.NATSURL != "" {
		conn, err := transport.ConnectNATS(cfg.NATSURL, s.log.With(slog.String("component", "nats")))
		if err != nil {
			s.log.Error("sink_unavailable", slog.String("sink", "nats"), slog.Any("err", err))
		} else {
			ns := transport.NewNATSSink(conn, cfg.NATSSubject)
			s.sinks = append(s.sinks, sink{disp: transport.NewDispatcher(ns, opts()), connected: ns.Connected})
		}
	}
}

// StartSimulation launches a run in the background. The run outlives ctx;
// it stops on CancelSimulation or service shutdown.
func (s *Service) StartSimulation(_ context.Context, req command.SimulateRequest) (string, error) {
	p, err := RunParams(s.cfg, req)
	if err != nil {
		return "", err
	}
	s.runsMu.Lock()
	if s.closing {
		s.runsMu.Unlock()
		return "", ErrClosed
	}
	s.runs.Add(1)
	s.runsMu.Unlock()
	runID, done, err := s.sim.Start(s.runCtx, p)
	if err != nil {
		s.runs.Done()
		return "", err
	}
	go func() {
		defer s.runs.Done()
		res := <-done
		if s.cfg.ChartDir == "" || res == nil || len(res.Records) == 0 {
			return
		}
		path, err := report.SaveChart(s.cfg.ChartDir, res, report.ChartOptions{Safety: s.cfg.Alerts.Safety})
		if err != nil {
			s.log.Warn("chart_save_failed", slog.String("runId", res.RunID), slog.Any("err", err))
			return
		}
		s.log.Info("chart_saved", slog.String("runId", res.RunID), slog.String("path", path))
	}()
	return runID, nil
}

func (s *Service) CancelSimulation() bool { return s.sim.Cancel() }

func (s *Service) Infer(req command.InferRequest) (command.InferResponse, error) {
	start := time.Now()
	res, err := PointInference(s.engine, req)
	if err != nil {
		return res, err
	}
	s.metrics.Inference(time.Since(start), res.Fallback)
	return res, nil
}

func (s *Service) Status() api.Status {
	st := api.Status{
		Running:    s.sim.IsRunning(),
		RunID:      s.sim.CurrentRunID(),
		Controller: s.def.Name,
		Last:       api.Summarize(s.sim.Last()),
		Sinks:      make([]api.SinkStatus, 0, len(s.sinks)),
	}
	for _, sk := range s.sinks {
		ss := api.SinkStatus{
			Name:      sk.disp.Name(),
			Connected: sk.connected(),
			Published: sk.disp.Published(),
			Dropped:   sk.disp.Dropped(),
			Failed:    sk.disp.Failed(),
		}
		if sk.breaker != nil {
			ss.Breaker = sk.breaker.State().String()
		}
		st.Sinks = append(st.Sinks, ss)
	}
	return st
}

func (s *Service) LastRun() *simulation.Result { return s.sim.Last() }

func (s *Service) Definition() *ruleset.Definition { return s.def }

func (s *Service) Handler() http.Handler { return s.handler }

func (s *Service) Logger() *slog.Logger { return s.log }

// Run serves HTTP on bind until ctx is cancelled or the listener fails,
// then shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := api.NewServer(s.cfg.HTTPBind, s.handler, s.log)
	ln, err := srv.Listen()
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.HTTPBind, err)
	}
	return s.serve(ctx, srv, ln)
}

func (s *Service) serve(ctx context.Context, srv *api.Server, ln net.Listener) error {
	httpCh := make(chan error, 1)
	go func() {
		s.health.SetReady(true)
		httpCh <- srv.Serve(ln)
	}()

	var httpErr error
	select {
	case httpErr = <-httpCh:
		if httpErr != nil {
			s.log.Error("http_server_error", slog.Any("err", httpErr))
		}
	case <-ctx.Done():
		s.log.Info("shutdown_signal")
		s.health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("server_shutdown_failed", slog.Any("err", err))
			httpErr = fmt.Errorf("shutdown: %w", err)
		}
		cancel()
		if err := <-httpCh; err != nil && httpErr == nil {
			httpErr = err
		}
	}
	s.health.SetReady(false)
	s.Close()
	return httpErr
}

// Close cancels any active run, waits for it to finish, then drains and
// closes every sink.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.runsMu.Lock()
		s.closing = true
		s.runsMu.Unlock()
		s.stopRuns()
		s.runs.Wait()
		for _, sk := range s.sinks {
			if err := sk.disp.Close(); err != nil {
				s.log.Warn("sink_close_failed", slog.String("sink", sk.disp.Name()), slog.Any("err", err))
			}
		}
		if s.mqtt != nil && s.mqtt.IsConnectionOpen() {
			s.mqtt.Disconnect(250)
		}
		s.log.Info("service_closed")
	})
}
