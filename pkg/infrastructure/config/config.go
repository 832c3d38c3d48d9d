package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Missing parameter policies
const (
	PolicyDefault   = "default"
	PolicyException = "exception"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Planning struct {
		BucketDays             int     `yaml:"bucket_days"`
		Workers                int     `yaml:"workers"`
		MissingParameterPolicy string  `yaml:"missing_parameter_policy"`
		FirmTolerancePercent   float64 `yaml:"firm_tolerance_percent"`
		ExcessThresholdPercent float64 `yaml:"excess_threshold_percent"`
		DefaultParameter       struct {
			LeadTimeDays          int    `yaml:"lead_time_days"`
			SafetyStock           int64  `yaml:"safety_stock"`
			SafetyTimeDays        int    `yaml:"safety_time_days"`
			LotSizing             string `yaml:"lot_sizing"`
			PlanningTimeFenceDays int    `yaml:"planning_time_fence_days"`
			ServiceLevelPercent   int    `yaml:"service_level_percent"`
		} `yaml:"default_parameter"`
	} `yaml:"planning"`
	Capacity struct {
		DispatchRule string `yaml:"dispatch_rule"`
	} `yaml:"capacity"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Storage struct {
		Backend     string `yaml:"backend"`
		DataDir     string `yaml:"data_dir"`
		TablePrefix string `yaml:"table_prefix"`
	} `yaml:"storage"`
}

// Default returns the built-in configuration
func Default() *Config {
	c := &Config{}
	c.Planning.BucketDays = 7
	c.Planning.Workers = 4
	c.Planning.MissingParameterPolicy = PolicyDefault
	c.Planning.FirmTolerancePercent = 10
	c.Planning.ExcessThresholdPercent = 50
	c.Planning.DefaultParameter.LotSizing = "L4L"
	c.Planning.DefaultParameter.ServiceLevelPercent = 95
	c.Capacity.DispatchRule = "EDD"
	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Metrics.Enabled = true
	c.HTTP.Addr = ":8080"
	c.Storage.Backend = BackendMemory
	c.Storage.TablePrefix = "mrp"
	return c
}

// Load reads path over the defaults, applies environment overrides and validates.
// An empty path uses the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Storage.Backend = getenvDefault("MRP_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.DataDir = getenvDefault("MRP_DATA_DIR", c.Storage.DataDir)
	c.Storage.TablePrefix = getenvDefault("DYNAMODB_TABLE_PREFIX", c.Storage.TablePrefix)
	c.HTTP.Addr = getenvDefault("MRP_HTTP_ADDR", c.HTTP.Addr)
	c.Logging.Level = getenvDefault("MRP_LOG_LEVEL", c.Logging.Level)
	if v := os.Getenv("MRP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MRP_WORKERS %q: %w", v, err)
		}
		c.Planning.Workers = n
	}
	return nil
}

// Validate checks the engine tunables
func (c *Config) Validate() error {
	if c.Planning.BucketDays <= 0 {
		return fmt.Errorf("planning.bucket_days must be positive, got %d", c.Planning.BucketDays)
	}
	if c.Planning.Workers <= 0 {
		return fmt.Errorf("planning.workers must be positive, got %d", c.Planning.Workers)
	}
	switch c.Planning.MissingParameterPolicy {
	case PolicyDefault, PolicyException:
	default:
		return fmt.Errorf("unknown missing parameter policy: %s", c.Planning.MissingParameterPolicy)
	}
	if c.Planning.FirmTolerancePercent < 0 || c.Planning.ExcessThresholdPercent < 0 {
		return fmt.Errorf("tolerance and excess threshold cannot be negative")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if _, err := c.DefaultParameter(); err != nil {
		return fmt.Errorf("planning.default_parameter: %w", err)
	}
	return nil
}

// DefaultParameter returns the parameter template used for items without their own.
// Item and warehouse are left empty for the caller to fill.
func (c *Config) DefaultParameter() (entities.MRPParameter, error) {
	d := c.Planning.DefaultParameter
	lot, err := entities.ParseLotSizingMethod(d.LotSizing)
	if err != nil {
		return entities.MRPParameter{}, err
	}
	return entities.MRPParameter{
		LeadTimeDays:          d.LeadTimeDays,
		SafetyStock:           entities.Quantity(d.SafetyStock),
		SafetyTimeDays:        d.SafetyTimeDays,
		LotSizing:             lot,
		OrderPolicy:           entities.Backward,
		PlanningTimeFenceDays: d.PlanningTimeFenceDays,
		ServiceLevelPercent:   d.ServiceLevelPercent,
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
