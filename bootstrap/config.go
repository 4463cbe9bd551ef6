package bootstrap

import (
	"github.com/kbukum/tailpipe/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig satisfies it through promoted methods, as
// long as it does not shadow ApplyDefaults or Validate without calling them.
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline config.PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
