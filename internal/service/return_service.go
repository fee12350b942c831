package service

import (
	"time"

	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
	"github.com/stockfolio/performance-backend/internal/validation"
)

// ReturnService computes time-weighted portfolio returns from snapshots using
// the Modified Dietz method. Cash flows are taken from the max_cash_deployed
// deltas between consecutive snapshots, so deposits count from the day the
// money was actually put to work.
type ReturnService struct {
	snapshotRepo *repository.SnapshotRepository
}

// NewReturnService creates a new ReturnService.
func NewReturnService(snapshotRepo *repository.SnapshotRepository) *ReturnService {
	return &ReturnService{snapshotRepo: snapshotRepo}
}

// ComputeReturn calculates the Modified Dietz return over [start, end]:
//
//	Return = (V_end - V_start - CF_net) / (V_start + W * CF_net) * 100
//
// where CF_net is the change in deployed capital across the window and W is
// the day-weighted average placement of that flow. Fewer than two end-of-day
// snapshots in the window yields a 0% result flagged insufficient_data rather
// than an error; a zero denominator yields 0% flagged zero_baseline.
func (s *ReturnService) ComputeReturn(userID string, start, end time.Time) (model.ReturnResult, error) {
	if err := validation.ValidateDateRange(start, end); err != nil {
		return model.ReturnResult{}, err
	}

	snaps, err := s.snapshotRepo.ListRange(userID, start, end, false)
	if err != nil {
		return model.ReturnResult{}, err
	}

	if len(snaps) < 2 {
		return model.ReturnResult{Flags: []string{model.FlagInsufficientData}}, nil
	}

	first := snaps[0]
	last := snaps[len(snaps)-1]

	result := model.ReturnResult{
		VStart: first.TotalValue,
		VEnd:   last.TotalValue,
		CFNet:  last.MaxCashDeployed - first.MaxCashDeployed,
	}

	// A window starting before the user's history re-bases to the first
	// available snapshot. The all-time window passes a zero start and is
	// always re-based, which needs no flag.
	if !start.IsZero() && first.Date.After(dateOnly(start)) {
		result.Flags = append(result.Flags, model.FlagRebased)
	}

	result.Weight = dietzWeight(snaps, result.CFNet)

	denominator := result.VStart + result.Weight*result.CFNet
	if denominator == 0 {
		result.Flags = append(result.Flags, model.FlagZeroBaseline)
		return result, nil
	}

	result.Percent = round((result.VEnd - result.VStart - result.CFNet) / denominator * 100)
	return result, nil
}

// dietzWeight computes the day-weighted average placement of the window's net
// cash flow. Each intermediate flow is weighted by the fraction of the window
// remaining after it lands. A zero-length window or zero net flow uses the
// midpoint weight, where the flow term vanishes from the formula anyway.
func dietzWeight(snaps []model.Snapshot, cfNet float64) float64 {
	if cfNet == 0 {
		return 0.5
	}

	first := snaps[0]
	last := snaps[len(snaps)-1]

	totalDays := daysBetween(first.Date, last.Date)
	if totalDays == 0 {
		return 0.5
	}

	var weighted float64
	for i := 1; i < len(snaps); i++ {
		flow := snaps[i].MaxCashDeployed - snaps[i-1].MaxCashDeployed
		if flow == 0 {
			continue
		}
		remaining := daysBetween(snaps[i].Date, last.Date)
		weighted += flow * float64(remaining) / float64(totalDays)
	}

	return weighted / cfNet
}

// ChartSeries builds the value/percent chart for a window. The percent of
// each point is its simple return against the baseline, which is the first
// snapshot in the window with a non-zero value; zero-value points before the
// baseline are dropped so a pre-funding stretch does not chart as -100%.
//
// Intraday snapshots are included when requested, giving short-period charts
// finer movement than one point per day.
func (s *ReturnService) ChartSeries(userID string, start, end time.Time, includeIntraday bool) ([]model.ChartPoint, error) {
	if err := validation.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	snaps, err := s.snapshotRepo.ListRange(userID, start, end, includeIntraday)
	if err != nil {
		return nil, err
	}

	var baseline float64
	points := make([]model.ChartPoint, 0, len(snaps))

	for _, snap := range snaps {
		if baseline == 0 {
			if snap.TotalValue == 0 {
				continue
			}
			baseline = snap.TotalValue
		}

		points = append(points, model.ChartPoint{
			Date:    snap.Date,
			Value:   snap.TotalValue,
			Percent: round((snap.TotalValue - baseline) / baseline * 100),
		})
	}

	return points, nil
}
