package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/kbukum/tailpipe/config"
	"github.com/kbukum/tailpipe/observability"
	"github.com/kbukum/tailpipe/output"
	"github.com/kbukum/tailpipe/status"
	"github.com/kbukum/tailpipe/validation"
)

// AppConfig is the tailpipe binary's configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Pipeline      config.PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Status        status.Config         `yaml:"status" mapstructure:"status"`
	Observability observability.Config  `yaml:"observability" mapstructure:"observability"`
	NATS          output.NATSConfig     `yaml:"nats" mapstructure:"nats"`
}

func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = appName
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Status.ApplyDefaults()
	c.NATS.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.Version = c.Version
	c.Observability.Environment = c.Environment
	if c.Observability.Enabled {
		c.Observability.ApplyDefaults()
		c.Pipeline.Instrument = true
	}
}

func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := validation.Validate(&c.Observability); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := validation.Validate(&c.NATS); err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	return nil
}

// outputs lists every route's output target.
func (c *AppConfig) outputs() []string {
	out := make([]string, len(c.Pipeline.Routes))
	for i, r := range c.Pipeline.Routes {
		out[i] = r.Output
	}
	return out
}

// loadConfig layers the config file, .env, TAILPIPE_* variables and flags,
// then applies the flags that do not map onto a single key.
func loadConfig(f *cliFlags) (*AppConfig, error) {
	var cfg AppConfig
	opts := []config.LoaderOption{config.WithFlags(f.fs, flagKeys)}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	if err := config.LoadConfig(appName, &cfg, opts...); err != nil {
		return nil, err
	}

	if f.fs.NArg() == 1 {
		cfg.Pipeline.Input = f.fs.Arg(0)
	}
	if len(f.routes) > 0 {
		cfg.Pipeline.Routes = cfg.Pipeline.Routes[:0]
		for _, spec := range f.routes {
			r, err := config.ParseRoute(spec)
			if err != nil {
				return nil, err
			}
			cfg.Pipeline.Routes = append(cfg.Pipeline.Routes, r)
		}
	}
	if f.statusAddr != "" {
		host, port, err := net.SplitHostPort(f.statusAddr)
		if err != nil {
			return nil, fmt.Errorf("--status-addr: %w", err)
		}
		if cfg.Status.Port, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("--status-addr: invalid port %q", port)
		}
		cfg.Status.Host = host
		cfg.Status.Enabled = true
	}
	if f.allowFaults {
		cfg.Status.AllowFaults = true
	}
	return &cfg, nil
}
