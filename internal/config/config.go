// v0
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nrgchamp/cracfuzzy/internal/disturbance"
	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/plant"
	"nrgchamp/cracfuzzy/internal/simulation"
)

const defaultPropertiesPath = "./configs/cracfuzzy.properties"

var ErrInvalidValue = errors.New("invalid configuration value")

// AppConfig is the merged view of defaults, the properties file and the
// environment, in that order of precedence (environment wins).
type AppConfig struct {
	HTTPBind       string
	PropertiesPath string
	LogDir         string

	// Controller is "reference" or "extended" when ControllerFile is empty.
	Controller     string
	ControllerFile string
	Resolution     float64 // 0 keeps the controller's own value
	Fallback       *float64

	Setpoint    float64
	InitialTemp float64
	Horizon     int
	Pace        time.Duration
	Limits      simulation.Limits

	Plant       plant.Coefficients
	Profile     string
	Disturbance disturbance.ProfileParams

	KPI    kpi.Options
	Alerts simulation.AlertPolicy

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	KafkaBrokers []string
	KafkaTopic   string

	NATSURL     string
	NATSSubject string

	DispatchBuffer int
	StreamEvery    int
	ChartDir       string
}

// Defaults mirror the reference deployment.
func Defaults() *AppConfig {
	return &AppConfig{
		HTTPBind:        ":8080",
		PropertiesPath:  defaultPropertiesPath,
		LogDir:          "./logs",
		Controller:      "reference",
		Setpoint:        22,
		InitialTemp:     22,
		Horizon:         simulation.DefaultHorizon,
		Limits:          simulation.DefaultLimits(),
		Plant:           plant.Reference(),
		Profile:         disturbance.ProfileConstant,
		Disturbance:     disturbance.ProfileParams{BaseExternal: 25, BaseLoad: 40, Seed: 1},
		KPI:             kpi.DefaultOptions(22),
		Alerts:          simulation.DefaultAlertPolicy(),
		MQTTClientID:    "cracfuzzy",
		MQTTTopicPrefix: "datacenter/fuzzy",
		KafkaTopic:      "crac.fuzzy.events",
		NATSSubject:     "crac.fuzzy",
		DispatchBuffer:  256,
		StreamEvery:     5,
	}
}

// Load builds the configuration. A missing properties file is only an
// error when CRAC_PROPERTIES points at it explicitly.
func Load() (*AppConfig, error) {
	c := Defaults()
	explicit := os.Getenv("CRAC_PROPERTIES")
	if explicit != "" {
		c.PropertiesPath = explicit
	}
	props, err := readProperties(c.PropertiesPath)
	switch {
	case err == nil:
		if err := c.apply(props); err != nil {
			return nil, fmt.Errorf("%s: %w", c.PropertiesPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && explicit == "":
	default:
		return nil, err
	}
	c.HTTPBind = getenv("HTTP_BIND", c.HTTPBind)
	c.LogDir = getenv("LOG_DIR", c.LogDir)
	c.ControllerFile = getenv("CONTROLLER_FILE", c.ControllerFile)
	c.MQTTBroker = getenv("MQTT_BROKER", c.MQTTBroker)
	c.NATSURL = getenv("NATS_URL", c.NATSURL)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = split(v, ",")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *AppConfig) Validate() error {
	if c.Setpoint < c.Limits.SetpointMin || c.Setpoint > c.Limits.SetpointMax {
		return fmt.Errorf("%w: sim.setpoint %g outside [%g, %g]", ErrInvalidValue, c.Setpoint, c.Limits.SetpointMin, c.Limits.SetpointMax)
	}
	if c.Horizon < 1 || c.Horizon > c.Limits.HorizonMax {
		return fmt.Errorf("%w: sim.horizon %d outside [1, %d]", ErrInvalidValue, c.Horizon, c.Limits.HorizonMax)
	}
	if err := c.Plant.Validate(); err != nil {
		return err
	}
	if err := c.Alerts.Validate(); err != nil {
		return err
	}
	if c.KPI.Comfort.Low >= c.KPI.Comfort.High || c.KPI.StepDuration <= 0 {
		return fmt.Errorf("%w: kpi comfort [%g, %g] step %g", ErrInvalidValue, c.KPI.Comfort.Low, c.KPI.Comfort.High, c.KPI.StepDuration)
	}
	if c.DispatchBuffer < 1 || c.StreamEvery < 1 {
		return fmt.Errorf("%w: dispatch.buffer=%d stream.every=%d", ErrInvalidValue, c.DispatchBuffer, c.StreamEvery)
	}
	return nil
}

func readProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	out := map[string]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, s.Err()
}

func (c *AppConfig) apply(p map[string]string) error {
	r := reader{props: p}
	r.str("http.bind", &c.HTTPBind)
	r.str("log.dir", &c.LogDir)
	r.str("controller.builtin", &c.Controller)
	r.str("controller.file", &c.ControllerFile)
	r.num("controller.resolution", &c.Resolution)
	if _, ok := p["controller.fallback"]; ok {
		var fb float64
		r.num("controller.fallback", &fb)
		c.Fallback = &fb
	}

	r.num("sim.setpoint", &c.Setpoint)
	r.num("sim.initial_temp", &c.InitialTemp)
	r.integer("sim.horizon", &c.Horizon)
	r.millis("sim.pace_ms", &c.Pace)
	r.num("sim.setpoint.min", &c.Limits.SetpointMin)
	r.num("sim.setpoint.max", &c.Limits.SetpointMax)
	r.num("sim.initial_temp.min", &c.Limits.InitialMin)
	r.num("sim.initial_temp.max", &c.Limits.InitialMax)
	r.integer("sim.horizon.max", &c.Limits.HorizonMax)

	r.num("plant.retention", &c.Plant.Retention)
	r.num("plant.cooling", &c.Plant.Cooling)
	r.num("plant.load", &c.Plant.Load)
	r.num("plant.ambient", &c.Plant.Ambient)
	r.num("plant.offset", &c.Plant.Offset)

	r.str("disturbance.profile", &c.Profile)
	r.num("disturbance.external", &c.Disturbance.BaseExternal)
	r.num("disturbance.load", &c.Disturbance.BaseLoad)
	r.integer64("disturbance.seed", &c.Disturbance.Seed)
	r.flag("disturbance.noise", &c.Disturbance.Noise)

	r.num("kpi.comfort.low", &c.KPI.Comfort.Low)
	r.num("kpi.comfort.high", &c.KPI.Comfort.High)
	r.num("kpi.step_duration", &c.KPI.StepDuration)
	r.num("alert.safety.low", &c.Alerts.Safety.Low)
	r.num("alert.safety.high", &c.Alerts.Safety.High)
	r.num("alert.efficiency.output", &c.Alerts.EfficiencyOutput)
	r.integer("alert.efficiency.window", &c.Alerts.EfficiencyWindow)
	r.integer("alert.efficiency.count", &c.Alerts.EfficiencyCount)
	r.integer("alert.stability.window", &c.Alerts.StabilityWindow)
	r.num("alert.stability.variance", &c.Alerts.StabilityVariance)
	// the metrics safety band follows the alert band
	c.KPI.Safety = c.Alerts.Safety

	r.str("mqtt.broker", &c.MQTTBroker)
	r.str("mqtt.client_id", &c.MQTTClientID)
	r.str("mqtt.topic_prefix", &c.MQTTTopicPrefix)
	if v, ok := p["kafka.brokers"]; ok {
		c.KafkaBrokers = split(v, ",")
	}
	r.str("kafka.topic", &c.KafkaTopic)
	r.str("nats.url", &c.NATSURL)
	r.str("nats.subject", &c.NATSSubject)
	r.integer("dispatch.buffer", &c.DispatchBuffer)
	r.integer("stream.every", &c.StreamEvery)
	r.str("chart.dir", &c.ChartDir)
	return r.err
}

// reader records the first parse failure and skips absent keys.
type reader struct {
	props map[string]string
	err   error
}

func (r *reader) fail(k, v string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, k, v, err)
	}
}

func (r *reader) str(k string, dst *string) {
	if v, ok := r.props[k]; ok {
		*dst = v
	}
}

func (r *reader) num(k string, dst *float64) {
	if v, ok := r.props[k]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(k, v, err)
			return
		}
		*dst = f
	}
}

func (r *reader) integer(k string, dst *int) {
	if v, ok := r.props[k]; ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			r.fail(k, v, err)
			return
		}
		*dst = i
	}
}

func (r *reader) integer64(k string, dst *int64) {
	if v, ok := r.props[k]; ok {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(k, v, err)
			return
		}
		*dst = i
	}
}

func (r *reader) flag(k string, dst *bool) {
	if v, ok := r.props[k]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(k, v, err)
			return
		}
		*dst = b
	}
}

func (r *reader) millis(k string, dst *time.Duration) {
	if v, ok := r.props[k]; ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			r.fail(k, v, err)
			return
		}
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
