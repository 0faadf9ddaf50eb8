package service

import (
	"context"
	"strings"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// LeaderboardService scores contributors over the current knowledge
// collection. Nothing is cached; every call reads and recomputes.
type LeaderboardService struct {
	repo ports.KnowledgeRepository
}

func NewLeaderboardService(repo ports.KnowledgeRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

func (s *LeaderboardService) Leaderboard(ctx context.Context, q ports.LeaderboardQuery) (*domain.Leaderboard, error) {
	items, err := s.repo.List(ctx, domain.KnowledgeFilter{})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)

	scoped := items[:0]
	for _, item := range items {
		if q.Region != "" && !strings.EqualFold(item.Region, q.Region) {
			continue
		}
		if q.Project != "" && !strings.EqualFold(item.Project, q.Project) {
			continue
		}
		if !q.Since.IsZero() && item.CreatedAt.Before(q.Since) {
			continue
		}
		scoped = append(scoped, item)
	}

	board := domain.Score(scoped)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	if search != "" {
		filtered := make([]domain.Standing, 0, len(board.Ranking))
		for _, st := range board.Ranking {
			if strings.Contains(strings.ToLower(st.Contributor), search) {
				filtered = append(filtered, st)
			}
		}
		board.Ranking = filtered
	}
	return &board, nil
}
