package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Gautam825406/Finance-crime-detection/internal/detect"
)

// Config is the root configuration structure for the detection service.
type Config struct {
	General   GeneralConfig `yaml:"general"`
	Server    ServerConfig  `yaml:"server"`
	Detection detect.Config `yaml:"detection"`
	Reports   ReportsConfig `yaml:"reports"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type ServerConfig struct {
	ListenAddr         string `yaml:"listen_addr"`
	ReadTimeoutSecs    int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs   int    `yaml:"write_timeout_secs"`
	AnalyzeTimeoutSecs int    `yaml:"analyze_timeout_secs"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes"`
	ShutdownGraceSecs  int    `yaml:"shutdown_grace_secs"`
}

// AnalyzeTimeout returns the per-request analysis deadline.
func (c ServerConfig) AnalyzeTimeout() time.Duration {
	return time.Duration(c.AnalyzeTimeoutSecs) * time.Second
}

type ReportsConfig struct {
	OutputDir  string `yaml:"output_dir"`
	LatestFile string `yaml:"latest_file"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "amld-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 30
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 60
	}
	if cfg.Server.AnalyzeTimeoutSecs == 0 {
		cfg.Server.AnalyzeTimeoutSecs = 120
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Server.ShutdownGraceSecs == 0 {
		cfg.Server.ShutdownGraceSecs = 10
	}
	if cfg.Reports.OutputDir == "" {
		cfg.Reports.OutputDir = "reports"
	}
	if cfg.Reports.LatestFile == "" {
		cfg.Reports.LatestFile = "fraud_report.json"
	}

	def := detect.DefaultConfig()
	d := &cfg.Detection
	if d.MinCycleLength == 0 {
		d.MinCycleLength = def.MinCycleLength
	}
	if d.MaxCycleLength == 0 {
		d.MaxCycleLength = def.MaxCycleLength
	}
	if d.MaxCycles == 0 {
		d.MaxCycles = def.MaxCycles
	}
	if d.CycleWindowHours == 0 {
		d.CycleWindowHours = def.CycleWindowHours
	}
	if d.AmountTolerance == 0 {
		d.AmountTolerance = def.AmountTolerance
	}
	if d.SmurfWindowHours == 0 {
		d.SmurfWindowHours = def.SmurfWindowHours
	}
	if d.FanThreshold == 0 {
		d.FanThreshold = def.FanThreshold
	}
	if d.VelocityThreshold == 0 {
		d.VelocityThreshold = def.VelocityThreshold
	}
	if d.RedistributionRatio == 0 {
		d.RedistributionRatio = def.RedistributionRatio
	}
	if d.MaxSmurfing == 0 {
		d.MaxSmurfing = def.MaxSmurfing
	}
	if d.ShellMinDegree == 0 {
		d.ShellMinDegree = def.ShellMinDegree
	}
	if d.ShellMaxDegree == 0 {
		d.ShellMaxDegree = def.ShellMaxDegree
	}
	if d.MaxLayeringDepth == 0 {
		d.MaxLayeringDepth = def.MaxLayeringDepth
	}
	if d.ShellRatio == 0 {
		d.ShellRatio = def.ShellRatio
	}
	if d.LayeringStepHours == 0 {
		d.LayeringStepHours = def.LayeringStepHours
	}
	if d.LayeringSpanHours == 0 {
		d.LayeringSpanHours = def.LayeringSpanHours
	}
	if d.SpreadTolerance == 0 {
		d.SpreadTolerance = def.SpreadTolerance
	}
	if d.MaxLayering == 0 {
		d.MaxLayering = def.MaxLayering
	}
}
