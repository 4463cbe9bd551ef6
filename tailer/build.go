package tailer

import (
	"regexp"

	"github.com/kbukum/tailpipe/config"
	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
	"github.com/kbukum/tailpipe/observability"
	"github.com/kbukum/tailpipe/pipeline"
)

// Predicate returns the line predicate a route matches with.
func Predicate(r config.RouteConfig) (pipeline.Predicate[string], error) {
	var p pipeline.Predicate[string]
	switch r.Match {
	case config.MatchContains, "":
		p = pipeline.Contains(r.Pattern)
	case config.MatchPrefix:
		p = pipeline.HasPrefix(r.Pattern)
	case config.MatchRegex:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, errors.InvalidInput("routes."+r.Name+".pattern", "invalid regular expression").WithCause(err)
		}
		p = pipeline.Matches(re)
	default:
		return nil, errors.InvalidInput("routes."+r.Name+".match", "unknown match kind "+r.Match)
	}
	if r.Invert {
		p = pipeline.Not(p)
	}
	return p, nil
}

// Policy maps a configured policy name to the Broadcast policy.
func Policy(name string) pipeline.Policy {
	if name == config.PolicyCollectAll {
		return pipeline.CollectAll
	}
	return pipeline.FailFast
}

// tree is a built pipeline plus handles to its sinks by route name.
type tree struct {
	root  pipeline.Stage[string]
	sinks map[string]pipeline.Stage[string]
}

// build assembles Broadcast -> Filter -> Sink per route. The Broadcast
// receives routes in configuration order.
func (s *Service) build(runID string) (*tree, error) {
	t := &tree{sinks: make(map[string]pipeline.Stage[string], len(s.cfg.Routes))}
	branches := make([]pipeline.Stage[string], 0, len(s.cfg.Routes))

	for _, r := range s.cfg.Routes {
		match, err := Predicate(r)
		if err != nil {
			return nil, err
		}
		w, err := s.opener.Open(r.Output)
		if err != nil {
			return nil, err
		}

		route := r.Name
		log := s.log.WithFields(logger.Fields(logger.FieldRoute, route, logger.FieldTarget, r.Output))
		sink := s.instrument(runID, pipeline.NewSink[string](w,
			pipeline.WithName(route+".sink"),
			pipeline.OnClose(func() { log.Debug("sink closed") }),
		))
		filter := s.instrument(runID, pipeline.NewFilter(match, sink, pipeline.WithName(route)))

		t.sinks[route] = sink
		branches = append(branches, filter)
	}

	t.root = s.instrument(runID, pipeline.NewBroadcast(branches,
		pipeline.WithName("broadcast"),
		pipeline.WithPolicy(Policy(s.cfg.Policy)),
	))
	return t, nil
}

func (s *Service) instrument(runID string, stage pipeline.Stage[string]) pipeline.Stage[string] {
	if !s.cfg.Instrument {
		return stage
	}
	return observability.Instrument(stage, s.metrics, nil, observability.WithRunID(runID))
}
