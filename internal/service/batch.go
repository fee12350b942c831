package service

import "log"

// batchConcurrency caps parallel per-user work inside scheduled batch jobs.
const batchConcurrency = 8

// BatchFailure records one failed unit of a batch job.
type BatchFailure struct {
	UserID string
	Period string
	Err    error
}

// BatchReport summarizes a batch job run. Skipped units (e.g. users with no
// transactions yet) count toward Total but are neither successes nor failures.
type BatchReport struct {
	Total     int
	Succeeded int
	Skipped   int
	Failures  []BatchFailure
}

// Log writes a one-line summary plus one line per failure.
func (r BatchReport) Log(job string) {
	log.Printf("scheduler: %s finished: %d total, %d succeeded, %d skipped, %d failed",
		job, r.Total, r.Succeeded, r.Skipped, len(r.Failures))
	for _, f := range r.Failures {
		if f.Period != "" {
			log.Printf("scheduler: %s failed for user %s period %s: %v", job, f.UserID, f.Period, f.Err)
		} else {
			log.Printf("scheduler: %s failed for user %s: %v", job, f.UserID, f.Err)
		}
	}
}
