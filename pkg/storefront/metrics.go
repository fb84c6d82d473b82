package storefront

import (
	"regexp"
	"strings"
	"time"
)

// Renewal outcomes reported to Metrics.
const (
	RenewalSuccess = "success"
	RenewalFailure = "failure"
	RenewalTimeout = "timeout"
)

// Metrics receives client telemetry. pkg/metrics provides a Prometheus
// implementation.
type Metrics interface {
	ObserveRequest(method, route string, status int, d time.Duration)
	ObserveRenewal(outcome string, d time.Duration)
	IncReplay()
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (nopMetrics) ObserveRenewal(string, time.Duration)              {}
func (nopMetrics) IncReplay()                                        {}

var idSegment = regexp.MustCompile(`^([0-9]+|[0-9A-HJKMNP-TV-Z]{26}|[0-9a-f-]{36})$`)

// routeLabel collapses ids in p so that metric labels stay bounded, e.g.
// "/orders/42/cancel/?x=1" becomes "/orders/:id/cancel/".
func routeLabel(p string) string {
	p, _, _ = strings.Cut(p, "?")
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if idSegment.MatchString(s) {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
