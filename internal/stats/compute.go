package stats

import (
	"sort"

	"solana-trade-engine/internal/domain"
)

// computeSummary calculates all summary fields from ledger records.
// Latency percentiles cover only the populations that can meaningfully
// carry them: submit latency needs a submission, confirm latency needs
// a confirmation.
func computeSummary(records []*domain.ExecutionRecord) *Summary {
	s := &Summary{
		TotalExecutions: len(records),
		ErrorKinds:      make(map[string]int),
	}

	var submitMs, confirmMs []float64
	for _, r := range records {
		switch r.Status {
		case domain.ExecutionConfirmed:
			s.Confirmed++
		case domain.ExecutionPending:
			s.Pending++
		default:
			s.Failed++
		}

		if r.CacheHit {
			s.CacheHits++
		}
		s.Rebuilds += r.Rebuilds

		switch r.Route {
		case domain.RoutePriority:
			s.PriorityRoutes++
		case domain.RouteDirect:
			s.DirectRoutes++
		}

		if r.ErrorKind != "" {
			s.ErrorKinds[r.ErrorKind]++
		}

		if r.Signature != "" {
			submitMs = append(submitMs, float64(r.SubmitMs))
			if r.SubmitMs > s.SubmitMsMax {
				s.SubmitMsMax = r.SubmitMs
			}
		}
		if r.ConfirmMs > 0 {
			confirmMs = append(confirmMs, float64(r.ConfirmMs))
			if r.ConfirmMs > s.ConfirmMsMax {
				s.ConfirmMsMax = r.ConfirmMs
			}
		}
	}

	s.CacheHitRate = rate(s.CacheHits, s.TotalExecutions)
	routed := s.PriorityRoutes + s.DirectRoutes
	s.FallbackRate = rate(s.DirectRoutes, routed)

	sort.Float64s(submitMs)
	sort.Float64s(confirmMs)
	s.SubmitMsP50 = percentile(submitMs, 0.50)
	s.SubmitMsP90 = percentile(submitMs, 0.90)
	s.ConfirmMsP50 = percentile(confirmMs, 0.50)
	s.ConfirmMsP90 = percentile(confirmMs, 0.90)

	if len(s.ErrorKinds) == 0 {
		s.ErrorKinds = nil
	}
	return s
}

// rate divides part by total, 0 when total is 0.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// percentile uses linear interpolation. sorted must be pre-sorted ASC;
// p is the percentile fraction (0.50 = median).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
