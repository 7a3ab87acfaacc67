package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the cluster is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	solr  Pinger
	store Pinger
}

// New creates a Service. store can be nil when the sink has no database.
func New(solr, store Pinger) *Service {
	return &Service{solr: solr, store: store}
}

// Check pings the cluster and the store. Without the cluster nothing can be
// exported, so its failure makes the report unhealthy; a store failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.solr.Ping(ctx); err != nil {
		checks["solr"] = CheckError
		status = Unhealthy
	} else {
		checks["solr"] = CheckOK
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["database"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["database"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
