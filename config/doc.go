// Package config loads and validates tailpipe configuration.
//
// LoadConfig layers, from lowest to highest priority: a YAML config file,
// a .env file, environment variables carrying the service prefix
// (TAILPIPE_PIPELINE_INPUT for pipeline.input), and explicitly bound
// command-line flags. The result is unmarshalled into a caller-supplied
// struct using mapstructure tags.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("tailpipe", &cfg, config.WithFlags(fs, map[string]string{
//	    "input": "pipeline.input",
//	}))
package config
