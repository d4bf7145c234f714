package baseline

import (
	"github.com/perfhub/perfhub/modules/perftest/jtl"
)

// Thresholds are a capability's acceptance limits. A nil field means the
// corresponding check is not configured and is skipped during evaluation.
type Thresholds struct {
	P95MaxMs      *int64
	AvgMaxMs      *float64
	P90MaxMs      *int64
	ThroughputMin *float64
}

func (t Thresholds) Empty() bool {
	return t.P95MaxMs == nil && t.AvgMaxMs == nil && t.P90MaxMs == nil && t.ThroughputMin == nil
}

type CheckStatus string

const (
	CheckPass    CheckStatus = "pass"
	CheckFail    CheckStatus = "fail"
	CheckSkipped CheckStatus = "skipped"
)

type OverallStatus string

const (
	OverallPass         OverallStatus = "pass"
	OverallFail         OverallStatus = "fail"
	OverallNotEvaluated OverallStatus = "not_evaluated"
)

// Check names, stable across API responses and reports.
const (
	CheckP95        = "p95"
	CheckAvg        = "avg"
	CheckP90        = "p90"
	CheckThroughput = "throughput"
)

type Check struct {
	Name   string
	Status CheckStatus
	Actual float64
	Limit  float64
}

// Verdict is derived on demand from metrics plus thresholds and is never
// persisted independently.
type Verdict struct {
	Checks  []Check
	Overall OverallStatus
}

func (v Verdict) Check(name string) (Check, bool) {
	for _, c := range v.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Evaluate compares an aggregate against thresholds. Pure: safe to call
// repeatedly with different thresholds against the same metrics.
func Evaluate(m jtl.Aggregate, t Thresholds) Verdict {
	checks := make([]Check, 0, 4)

	checks = append(checks, upperBound(CheckP95, float64(m.P95Ms), floatPtr(t.P95MaxMs)))
	checks = append(checks, upperBound(CheckAvg, m.AvgResponseTimeMs, t.AvgMaxMs))
	checks = append(checks, upperBound(CheckP90, float64(m.P90Ms), floatPtr(t.P90MaxMs)))
	checks = append(checks, lowerBound(CheckThroughput, m.Throughput, t.ThroughputMin))

	evaluated := 0
	failed := 0
	for _, c := range checks {
		if c.Status == CheckSkipped {
			continue
		}
		evaluated++
		if c.Status == CheckFail {
			failed++
		}
	}

	overall := OverallNotEvaluated
	if evaluated > 0 {
		if failed == 0 {
			overall = OverallPass
		} else {
			overall = OverallFail
		}
	}
	return Verdict{Checks: checks, Overall: overall}
}

func upperBound(name string, actual float64, limit *float64) Check {
	if limit == nil {
		return Check{Name: name, Status: CheckSkipped, Actual: actual}
	}
	status := CheckPass
	if actual > *limit {
		status = CheckFail
	}
	return Check{Name: name, Status: status, Actual: actual, Limit: *limit}
}

func lowerBound(name string, actual float64, limit *float64) Check {
	if limit == nil {
		return Check{Name: name, Status: CheckSkipped, Actual: actual}
	}
	status := CheckPass
	if actual < *limit {
		status = CheckFail
	}
	return Check{Name: name, Status: status, Actual: actual, Limit: *limit}
}

func floatPtr(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
