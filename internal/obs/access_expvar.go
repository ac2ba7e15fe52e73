package obs

import (
	"expvar"
	"sync/atomic"
)

var (
	sessionResolveErrors int64

	accessDecisions = expvar.NewMap("access_decisions_total")
)

func init() {
	expvar.Publish("session_resolve_errors_total", expvar.Func(func() any {
		return atomic.LoadInt64(&sessionResolveErrors)
	}))
}

// RecordAccessDecision counts interceptor outcomes keyed by action ("allow", "redirect").
func RecordAccessDecision(action string) {
	if action == "" {
		action = "unknown"
	}
	accessDecisions.Add(action, 1)
}

func RecordSessionResolveError() {
	atomic.AddInt64(&sessionResolveErrors, 1)
}

func SessionResolveErrors() int64 {
	return atomic.LoadInt64(&sessionResolveErrors)
}
