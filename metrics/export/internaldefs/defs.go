package internaldefs

import (
	"github.com/pgcportal/portal"
)

type CounterDef struct {
	ID   portal.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   portal.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: portal.MetricRequest, Name: "portal_api_requests_total", Help: "Completed API requests."},
	{ID: portal.MetricRequestFailure, Name: "portal_api_request_failures_total", Help: "API requests that returned an error."},
	{ID: portal.MetricUnauthorized, Name: "portal_api_unauthorized_total", Help: "API responses with HTTP 401."},
	{ID: portal.MetricLoginSuccess, Name: "portal_login_success_total", Help: "Successful logins."},
	{ID: portal.MetricLoginFailure, Name: "portal_login_failure_total", Help: "Failed logins."},
	{ID: portal.MetricLogout, Name: "portal_logout_total", Help: "Local logouts."},
	{ID: portal.MetricRemoteLogoutFailure, Name: "portal_remote_logout_failure_total", Help: "Server logouts that failed after the local session was cleared."},
	{ID: portal.MetricSessionRehydrated, Name: "portal_session_rehydrated_total", Help: "Sessions restored from storage."},
	{ID: portal.MetricSessionExpired, Name: "portal_session_expired_total", Help: "Stored sessions discarded as expired."},
	{ID: portal.MetricGuardApplied, Name: "portal_guard_config_applied_total", Help: "Server guard configs applied."},
	{ID: portal.MetricGuardReset, Name: "portal_guard_config_reset_total", Help: "Fallbacks to the default guard mapping."},
	{ID: portal.MetricCartMutation, Name: "portal_cart_mutations_total", Help: "Cart writes."},
	{ID: portal.MetricCartMigrated, Name: "portal_cart_migrations_total", Help: "Carts moved from legacy storage."},
	{ID: portal.MetricCheckoutSuccess, Name: "portal_checkout_success_total", Help: "Carts submitted as applications."},
	{ID: portal.MetricCheckoutFailure, Name: "portal_checkout_failure_total", Help: "Failed cart submissions."},
	{ID: portal.MetricNavigationBoot, Name: "portal_navigation_boot_total", Help: "Navigations held while the session initializes."},
	{ID: portal.MetricNavigationRedirect, Name: "portal_navigation_redirect_total", Help: "Navigations redirected to login."},
	{ID: portal.MetricNavigationForbidden, Name: "portal_navigation_forbidden_total", Help: "Navigations denied by role or permission."},
	{ID: portal.MetricNavigationRender, Name: "portal_navigation_render_total", Help: "Navigations allowed."},
}

// GaugeDef reads one point-in-time value from portal.Gauges.
type GaugeDef struct {
	Name  string
	Help  string
	Value func(portal.Gauges) int64
}

var GaugeDefs = []GaugeDef{
	{Name: "portal_session_authenticated", Help: "1 while a user is signed in.", Value: func(g portal.Gauges) int64 {
		if g.Authenticated {
			return 1
		}
		return 0
	}},
	{Name: "portal_cart_lines", Help: "Distinct SKUs in the active cart.", Value: func(g portal.Gauges) int64 { return int64(g.CartLines) }},
	{Name: "portal_cart_quantity", Help: "Total units in the active cart.", Value: func(g portal.Gauges) int64 { return int64(g.CartQuantity) }},
}

var HistogramDefs = []HistogramDef{
	{ID: portal.MetricRequestLatency, Name: "portal_api_request_latency_seconds", Help: "API request latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric-name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
