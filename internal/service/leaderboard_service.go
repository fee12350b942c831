package service

import (
	"fmt"
	"sort"

	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/model"
	"github.com/stockfolio/performance-backend/internal/repository"
)

// LeaderboardService ranks users by cached period return. It reads cached
// entries only and never computes: a user with no cached result for the
// period is simply absent until the next regeneration picks them up.
type LeaderboardService struct {
	cacheRepo    *repository.CacheRepository
	holdingRepo  *repository.HoldingRepository
	securityRepo *repository.SecurityRepository
	userRepo     *repository.UserRepository
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(
	cacheRepo *repository.CacheRepository,
	holdingRepo *repository.HoldingRepository,
	securityRepo *repository.SecurityRepository,
	userRepo *repository.UserRepository,
) *LeaderboardService {
	return &LeaderboardService{
		cacheRepo:    cacheRepo,
		holdingRepo:  holdingRepo,
		securityRepo: securityRepo,
		userRepo:     userRepo,
	}
}

// Build assembles the ranking for one period, highest return first. Ties keep
// cache insertion order, so repeated builds over the same cache generation
// are stable. A non-empty category keeps only users currently holding at
// least one security in that category. A limit of 0 means no limit.
func (s *LeaderboardService) Build(periodKey, category string, limit int) ([]model.LeaderboardEntry, error) {
	if _, ok := model.LookupPeriod(periodKey); !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownPeriod, periodKey)
	}

	cached, err := s.cacheRepo.GetAllForPeriod(periodKey)
	if err != nil {
		return nil, err
	}

	if category != "" {
		cached, err = s.filterByCategory(cached, category)
		if err != nil {
			return nil, err
		}
	}

	names, err := s.displayNames()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(cached))
	for _, result := range cached {
		name, ok := names[result.UserID]
		if !ok {
			name = result.UserID
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:      result.UserID,
			DisplayName: name,
			ReturnPct:   result.PortfolioReturnPct,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ReturnPct > entries[j].ReturnPct
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}

// filterByCategory keeps results whose user currently holds at least one
// ticker in the category.
func (s *LeaderboardService) filterByCategory(cached []model.CachedPeriodResult, category string) ([]model.CachedPeriodResult, error) {
	tickers, err := s.securityRepo.GetTickersByCategory(category)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.CachedPeriodResult, 0, len(cached))
	for _, result := range cached {
		holdings, err := s.holdingRepo.GetByUser(result.UserID)
		if err != nil {
			return nil, err
		}
		for _, h := range holdings {
			if tickers[h.Ticker] {
				filtered = append(filtered, result)
				break
			}
		}
	}

	return filtered, nil
}

func (s *LeaderboardService) displayNames() (map[string]string, error) {
	users, err := s.userRepo.GetAll()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}
