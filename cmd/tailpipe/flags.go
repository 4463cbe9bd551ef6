package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// cliFlags holds flags that are not plain config keys.
type cliFlags struct {
	fs          *pflag.FlagSet
	configFile  string
	envFile     string
	routes      []string
	statusAddr  string
	allowFaults bool
	showVersion bool
}

// flagKeys binds the remaining flags to config keys. Only flags set on the
// command line override the file and environment.
var flagKeys = map[string]string{
	"input":         "pipeline.input",
	"poll-interval": "pipeline.poll_interval",
	"policy":        "pipeline.policy",
	"environment":   "environment",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"nats-url":      "nats.url",
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{fs: pflag.NewFlagSet(appName, pflag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [input]\n\n", appName)
		fmt.Fprintf(stderr, "Follows input and copies each new line to every route whose pattern it matches.\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nRoutes take the form [name=]pattern[@output]; a leading ~ makes the pattern a\n")
		fmt.Fprintf(stderr, "regular expression. Outputs: stdout (default), stderr, file:<path>, <path>, nats:<subject>.\n")
	}

	fs.StringVarP(&f.configFile, "config", "c", "", "YAML config file")
	fs.StringVar(&f.envFile, "env-file", "", ".env file to load")
	fs.StringArrayVarP(&f.routes, "route", "r", nil, "route as [name=]pattern[@output] (repeatable, replaces configured routes)")
	fs.StringVar(&f.statusAddr, "status-addr", "", "serve the status API on host:port")
	fs.BoolVar(&f.allowFaults, "allow-faults", false, "enable fault injection on the status API")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")

	fs.StringP("input", "i", "", "file to follow")
	fs.Duration("poll-interval", 0, "wait between reads at end of input (default 100ms)")
	fs.String("policy", "", "broadcast failure policy: fail_fast or collect_all")
	fs.String("environment", "", "development, staging or production")
	fs.String("log-level", "", "log level")
	fs.String("log-format", "", "log format: console or json")
	fs.String("nats-url", "", "NATS server for nats: outputs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one input, got %d", fs.NArg())
	}
	return f, nil
}
