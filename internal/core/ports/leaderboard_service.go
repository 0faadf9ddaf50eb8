package ports

import (
	"context"
	"time"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// LeaderboardQuery narrows the items that are scored. Search filters the
// ranked output by contributor name without changing ranks.
type LeaderboardQuery struct {
	Region  string
	Project string
	Since   time.Time
	Search  string
}

// LeaderboardService computes contributor rankings on demand.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, query LeaderboardQuery) (*domain.Leaderboard, error)
}
