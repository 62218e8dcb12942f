// Package config loads calculator-api settings from defaults, an optional
// YAML file and CALCULATOR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type EvaluatorConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	IdleTTL             time.Duration `yaml:"idleTTL"`
	EqualsRPS           float64       `yaml:"equalsRPS"`
	EqualsBurst         int           `yaml:"equalsBurst"`
	UnknownErrorMessage string        `yaml:"unknownErrorMessage"`
}

type TelemetryConfig struct {
	LogLevel string `yaml:"logLevel"`
	OTLPLogs bool   `yaml:"otlpLogs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Sessions  SessionConfig   `yaml:"sessions"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Evaluator: EvaluatorConfig{
			URL:     "http://localhost:4090/calculator.CalculatorService/Calculate",
			Timeout: 5 * time.Second,
		},
		Sessions: SessionConfig{
			IdleTTL:             30 * time.Minute,
			EqualsRPS:           5,
			EqualsBurst:         2,
			UnknownErrorMessage: "unknown error",
		},
		Telemetry: TelemetryConfig{
			LogLevel: "info",
		},
	}
}

// searchPaths are tried in order when no explicit path is given.
var searchPaths = []string{
	"config.yaml",
	filepath.Join("config", "config.yaml"),
}

// Load builds the configuration. An explicit path must exist; without one
// the first readable search path is used, and a missing file means
// defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := findFile(path)
	if err != nil {
		return Config{}, err
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	if err := ApplyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	for _, candidate := range searchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// ApplyEnvOverrides copies CALCULATOR_* variables onto cfg. lookup is
// usually os.LookupEnv.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("CALCULATOR_PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := get("CALCULATOR_EVALUATOR_URL"); ok {
		cfg.Evaluator.URL = v
	}
	if v, ok := get("CALCULATOR_EVALUATOR_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_EVALUATOR_TIMEOUT: %w", err)
		}
		cfg.Evaluator.Timeout = d
	}
	if v, ok := get("CALCULATOR_SESSION_IDLE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_SESSION_IDLE_TTL: %w", err)
		}
		cfg.Sessions.IdleTTL = d
	}
	if v, ok := get("CALCULATOR_EQUALS_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CALCULATOR_EQUALS_RPS: %w", err)
		}
		cfg.Sessions.EqualsRPS = f
	}
	if v, ok := get("CALCULATOR_EQUALS_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_EQUALS_BURST: %w", err)
		}
		cfg.Sessions.EqualsBurst = n
	}
	if v, ok := get("CALCULATOR_UNKNOWN_ERROR"); ok {
		cfg.Sessions.UnknownErrorMessage = v
	}
	if v, ok := get("CALCULATOR_LOG_LEVEL"); ok {
		cfg.Telemetry.LogLevel = v
	}
	if v, ok := get("CALCULATOR_OTLP_LOGS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_OTLP_LOGS: %w", err)
		}
		cfg.Telemetry.OTLPLogs = b
	}
	return nil
}

// Validate reports every setting that cannot be served.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	if c.Evaluator.URL == "" {
		errs = append(errs, errors.New("evaluator.url is empty"))
	}
	if c.Evaluator.Timeout <= 0 {
		errs = append(errs, errors.New("evaluator.timeout must be positive"))
	}
	if c.Sessions.IdleTTL <= 0 {
		errs = append(errs, errors.New("sessions.idleTTL must be positive"))
	}
	if c.Sessions.EqualsRPS <= 0 || c.Sessions.EqualsBurst <= 0 {
		errs = append(errs, errors.New("sessions.equalsRPS and sessions.equalsBurst must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}
