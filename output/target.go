package output

import (
	"strings"

	"github.com/kbukum/tailpipe/errors"
)

// Kind classifies an output target.
type Kind string

const (
	KindStdout Kind = "stdout"
	KindStderr Kind = "stderr"
	KindFile   Kind = "file"
	KindNATS   Kind = "nats"
)

// Target is a parsed output target.
type Target struct {
	Kind Kind
	// Path is the file path or NATS subject; empty for stdout/stderr.
	Path string
}

// String renders the canonical form, which Opener uses as the sharing key.
func (t Target) String() string {
	switch t.Kind {
	case KindStdout, KindStderr:
		return string(t.Kind)
	default:
		return string(t.Kind) + ":" + t.Path
	}
}

// ParseTarget parses a target string.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Target{}, errors.InvalidInput("output", "empty output target")
	case s == "stdout" || s == "-":
		return Target{Kind: KindStdout}, nil
	case s == "stderr":
		return Target{Kind: KindStderr}, nil
	case strings.HasPrefix(s, "nats:"):
		subject := strings.TrimPrefix(s, "nats:")
		if subject == "" || strings.ContainsAny(subject, " \t") {
			return Target{}, errors.InvalidInput("output", "invalid NATS subject "+subject)
		}
		return Target{Kind: KindNATS, Path: subject}, nil
	case strings.HasPrefix(s, "file:"):
		path := strings.TrimPrefix(s, "file:")
		if path == "" {
			return Target{}, errors.InvalidInput("output", "empty file path")
		}
		return Target{Kind: KindFile, Path: path}, nil
	default:
		return Target{Kind: KindFile, Path: s}, nil
	}
}

// NeedsNATS reports whether any target publishes to NATS.
func NeedsNATS(targets []string) bool {
	for _, s := range targets {
		if t, err := ParseTarget(s); err == nil && t.Kind == KindNATS {
			return true
		}
	}
	return false
}
