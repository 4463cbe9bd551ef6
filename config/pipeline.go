package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/validation"
)

// Match kinds for RouteConfig.Match.
const (
	MatchContains = "contains"
	MatchPrefix   = "prefix"
	MatchRegex    = "regex"
)

// Broadcast failure policies for PipelineConfig.Policy.
const (
	PolicyFailFast   = "fail_fast"
	PolicyCollectAll = "collect_all"
)

// DefaultPollInterval matches the reference tail interval.
const DefaultPollInterval = 100 * time.Millisecond

// PipelineConfig describes one tailed input fanned out to filtered outputs.
type PipelineConfig struct {
	Input        string        `yaml:"input" mapstructure:"input" validate:"required"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" validate:"gte=0"`
	Policy       string        `yaml:"policy" mapstructure:"policy" validate:"oneof=fail_fast collect_all"`
	Instrument   bool          `yaml:"instrument" mapstructure:"instrument"`
	Routes       []RouteConfig `yaml:"routes" mapstructure:"routes" validate:"required,min=1,dive"`
}

// RouteConfig is one Filter -> Sink branch of the broadcast.
type RouteConfig struct {
	Name    string `yaml:"name" mapstructure:"name" json:"name" validate:"required"`
	Pattern string `yaml:"pattern" mapstructure:"pattern" json:"pattern" validate:"required"`
	Match   string `yaml:"match" mapstructure:"match" json:"match" validate:"oneof=contains prefix regex"`
	Invert  bool   `yaml:"invert" mapstructure:"invert" json:"invert,omitempty"`
	Output  string `yaml:"output" mapstructure:"output" json:"output" validate:"required"`
}

// ApplyDefaults fills unset pipeline and route fields.
func (c *PipelineConfig) ApplyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Policy == "" {
		c.Policy = PolicyFailFast
	}
	for i := range c.Routes {
		r := &c.Routes[i]
		if r.Match == "" {
			r.Match = MatchContains
		}
		if r.Output == "" {
			r.Output = "stdout"
		}
		if r.Name == "" {
			r.Name = r.Pattern
		}
	}
}

// Validate checks struct tags, route name uniqueness, and regex patterns.
func (c *PipelineConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Routes))
	for i, r := range c.Routes {
		if seen[r.Name] {
			return errors.InvalidInput(fmt.Sprintf("routes[%d].name", i),
				fmt.Sprintf("duplicate route name %q", r.Name))
		}
		seen[r.Name] = true
		if r.Match == MatchRegex {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return errors.InvalidInput(fmt.Sprintf("routes[%d].pattern", i), "invalid regular expression").
					WithCause(err)
			}
		}
	}
	return nil
}

// ParseRoute parses the command-line route form "[name=]pattern[@output]".
// A leading "~" on the pattern selects regex matching. The text after the
// last "@" is the output only when it names a target (stdout, stderr, "-",
// file:, nats:, or a path with a separator); otherwise the "@" belongs to
// the pattern, so "user@example.com" matches that address on stdout.
func ParseRoute(spec string) (RouteConfig, error) {
	var r RouteConfig
	rest := spec
	if name, after, ok := strings.Cut(rest, "="); ok {
		r.Name = name
		rest = after
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 && isTarget(rest[i+1:]) {
		r.Output = rest[i+1:]
		rest = rest[:i]
	}
	if strings.HasPrefix(rest, "~") {
		r.Match = MatchRegex
		rest = rest[1:]
	}
	r.Pattern = rest
	if r.Pattern == "" {
		return RouteConfig{}, errors.InvalidInput("route", fmt.Sprintf("empty pattern in %q", spec))
	}
	return r, nil
}

func isTarget(s string) bool {
	switch {
	case s == "stdout", s == "stderr", s == "-":
		return true
	case strings.HasPrefix(s, "file:"), strings.HasPrefix(s, "nats:"):
		return true
	}
	return strings.ContainsRune(s, '/') || strings.ContainsRune(s, filepath.Separator)
}
