package ratelimit

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Rule limits one route scope to Limit requests per Window, allowing bursts of
// up to Burst. A Path ending in "/" matches by prefix, and every path under it
// draws from the same bucket. A Limit of zero means unlimited.
type Rule struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// rate returns the steady refill rate.
func (r Rule) rate() rate.Limit {
	if r.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(r.Limit) / r.Window.Seconds())
}

func (r Rule) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// refill is the time needed to regain tokens.
func (r Rule) refill(tokens float64) time.Duration {
	if tokens <= 0 || r.Limit <= 0 || r.Window <= 0 {
		return 0
	}
	return time.Duration(tokens * float64(r.Window) / float64(r.Limit))
}

func (r Rule) isPrefix() bool {
	return strings.HasSuffix(r.Path, "/")
}

// DefaultRules returns the per-route limits for the /v1 API. Reads fall through
// to the default rule.
func DefaultRules() []Rule {
	return []Rule{
		{Path: "/health", Method: "GET", Limit: 0},

		// Identity creation is the scarcest resource.
		{Path: "/v1/sessions", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/v1/runs", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},

		// Log appends arrive once per pipeline step; status and evidence writes less often.
		{Path: "/v1/runs/", Method: "POST", Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/v1/runs/", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/v1/documents", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/v1/documents/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Role cache refreshes.
		{Path: "/v1/roles", Method: "PUT", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/v1/roles/", Method: "PUT", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// Match returns the rule for a request: an exact path match if one exists,
// otherwise the longest matching prefix rule, otherwise nil.
func Match(path, method string, rules []Rule) *Rule {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return r
		}
		if r.isPrefix() && strings.HasPrefix(path, r.Path) {
			if best == nil || len(r.Path) > len(best.Path) {
				best = r
			}
		}
	}
	return best
}
