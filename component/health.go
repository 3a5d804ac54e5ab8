package component

// HealthStatus is the state a component reports.
type HealthStatus string

const (
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded means the component works with reduced function, for
	// example capture without a usable audio backend. It does not fail
	// readiness.
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is one component's report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Summary folds a set of reports into one.
type Summary struct {
	// Status is the worst status reported; healthy when there are none.
	Status HealthStatus
	// Unhealthy and Degraded name the components in each state, in report
	// order.
	Unhealthy []string
	Degraded  []string
}

// Summarize folds reports into a Summary. An unknown status counts as
// unhealthy.
func Summarize(reports []Health) Summary {
	sum := Summary{Status: StatusHealthy}
	for _, h := range reports {
		switch h.Status.severity() {
		case 0:
			continue
		case 1:
			sum.Degraded = append(sum.Degraded, h.Name)
		default:
			sum.Unhealthy = append(sum.Unhealthy, h.Name)
		}
		if h.Status.severity() > sum.Status.severity() {
			sum.Status = h.Status
		}
	}
	if len(sum.Unhealthy) > 0 {
		sum.Status = StatusUnhealthy
	}
	return sum
}

// Ready reports whether no component is unhealthy.
func (s Summary) Ready() bool { return len(s.Unhealthy) == 0 }
