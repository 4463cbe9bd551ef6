package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/tailpipe/component"
)

// RouteInfo is one pipeline route as shown in the summary.
type RouteInfo struct {
	Name    string
	Match   string
	Pattern string
	Invert  bool
	Output  string
}

// Summary prints what a binary started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
	routes          []RouteInfo
}

// NewSummary returns a summary that prints to out. A nil out prints nothing.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: out}
}

func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute adds a route to the routes section.
func (s *Summary) TrackRoute(r RouteInfo) {
	s.routes = append(s.routes, r)
}

// Display prints components with their live health, then routes.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	if s.out == nil {
		return
	}
	w := s.out

	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var comps []component.Component
	if registry != nil {
		comps = registry.All()
	}
	if len(comps) > 0 {
		fmt.Fprintf(w, "\n📦 Components\n")
		healthy := 0
		for i, c := range comps {
			h := c.Health(ctx)
			if h.Status == component.StatusHealthy {
				healthy++
			}
			line := c.Name()
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Details != "" {
					line = fmt.Sprintf("%s [%s] %s", c.Name(), desc.Type, desc.Details)
				}
			}
			msg := ""
			if h.Message != "" {
				msg = " - " + h.Message
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(comps)), healthIcon(h.Status), line,
				strings.ToLower(string(h.Status)), msg)
		}
		if healthy == len(comps) {
			fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(comps))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(comps))
		}
	} else {
		fmt.Fprintf(w, "   └── No components registered\n")
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🔀 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			match := r.Match
			if r.Invert {
				match = "not " + match
			}
			fmt.Fprintf(w, "   %s %s: %s %q → %s\n", treePrefix(i, len(s.routes)), r.Name, match, r.Pattern, r.Output)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
