package domain

import "sort"

// Points awarded per knowledge item, by outcome.
const (
	PointsSubmission        = 10
	PointsApproved          = 5
	PointsRejected          = -2
	PointsRevisionRequested = 2
)

// UnknownContributor groups items submitted without an author.
const UnknownContributor = "unknown"

// Standing is one contributor's line on the leaderboard.
type Standing struct {
	Rank              int    `json:"rank"`
	Contributor       string `json:"contributor"`
	Points            int    `json:"points"`
	Level             string `json:"level"`
	Submissions       int    `json:"submissions"`
	Approved          int    `json:"approved"`
	Rejected          int    `json:"rejected"`
	RevisionRequested int    `json:"revisionRequested"`
}

// Leaderboard is the scoring projection over a knowledge collection.
type Leaderboard struct {
	Scores  map[string]int `json:"scores"`
	Ranking []Standing     `json:"ranking"`
}

// Score computes the leaderboard from items. Contributors are ranked by
// points descending; equal points keep the order in which each contributor
// first appears in items.
func Score(items []KnowledgeItem) Leaderboard {
	index := make(map[string]int)
	var standings []Standing

	for _, item := range items {
		name := item.Author
		if name == "" {
			name = UnknownContributor
		}
		i, ok := index[name]
		if !ok {
			i = len(standings)
			index[name] = i
			standings = append(standings, Standing{Contributor: name})
		}
		s := &standings[i]
		s.Submissions++
		switch item.Status {
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		case StatusRevisionRequested:
			s.RevisionRequested++
		}
	}

	scores := make(map[string]int, len(standings))
	for i := range standings {
		s := &standings[i]
		s.Points = s.Submissions*PointsSubmission +
			s.Approved*PointsApproved +
			s.Rejected*PointsRejected +
			s.RevisionRequested*PointsRevisionRequested
		s.Level = LevelFor(s.Points)
		scores[s.Contributor] = s.Points
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	if standings == nil {
		standings = []Standing{}
	}

	return Leaderboard{Scores: scores, Ranking: standings}
}

// LevelFor maps a point total to its display tier.
func LevelFor(points int) string {
	switch {
	case points >= 60:
		return "Level 4"
	case points >= 40:
		return "Level 3"
	case points >= 20:
		return "Level 2"
	default:
		return "Level 1"
	}
}
