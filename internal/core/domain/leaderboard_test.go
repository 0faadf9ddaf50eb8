package domain

import "testing"

func TestScore_TwoContributors(t *testing.T) {
	board := Score([]KnowledgeItem{
		{Author: "a", Status: StatusApproved},
		{Author: "b", Status: StatusPendingValidation},
	})

	if board.Scores["a"] != 15 || board.Scores["b"] != 10 {
		t.Fatalf("unexpected scores: %+v", board.Scores)
	}
	if len(board.Ranking) != 2 || board.Ranking[0].Contributor != "a" || board.Ranking[1].Contributor != "b" {
		t.Fatalf("unexpected ranking: %+v", board.Ranking)
	}
}

func TestScore_AllOutcomes(t *testing.T) {
	board := Score([]KnowledgeItem{
		{Author: "x", Status: StatusApproved},
		{Author: "x", Status: StatusRejected},
		{Author: "x", Status: StatusRevisionRequested},
		{Author: "x", Status: StatusPendingValidation},
	})

	// 4*10 + 5 - 2 + 2
	if got := board.Scores["x"]; got != 45 {
		t.Fatalf("expected 45, got %d", got)
	}
	s := board.Ranking[0]
	if s.Submissions != 4 || s.Approved != 1 || s.Rejected != 1 || s.RevisionRequested != 1 {
		t.Errorf("unexpected breakdown: %+v", s)
	}
	if s.Level != "Level 3" {
		t.Errorf("expected Level 3, got %s", s.Level)
	}
}

func TestScore_TieKeepsFirstSeenOrder(t *testing.T) {
	board := Score([]KnowledgeItem{
		{Author: "late", Status: StatusPendingValidation},
		{Author: "early", Status: StatusPendingValidation},
		{Author: "top", Status: StatusApproved},
	})

	want := []string{"top", "late", "early"}
	for i, name := range want {
		if board.Ranking[i].Contributor != name {
			t.Fatalf("rank %d: want %s, got %s", i+1, name, board.Ranking[i].Contributor)
		}
		if board.Ranking[i].Rank != i+1 {
			t.Errorf("rank field: want %d, got %d", i+1, board.Ranking[i].Rank)
		}
	}
}

func TestScore_UnknownAuthor(t *testing.T) {
	board := Score([]KnowledgeItem{{Status: StatusRejected}})
	if board.Scores[UnknownContributor] != 8 {
		t.Fatalf("expected unknown=8, got %+v", board.Scores)
	}
}

func TestScore_NonCanonicalStatusCountsAsSubmissionOnly(t *testing.T) {
	board := Score([]KnowledgeItem{{Author: "a", Status: "Parked"}})
	if board.Scores["a"] != 10 {
		t.Fatalf("expected 10, got %d", board.Scores["a"])
	}
}

func TestScore_Empty(t *testing.T) {
	board := Score(nil)
	if len(board.Scores) != 0 || board.Ranking == nil || len(board.Ranking) != 0 {
		t.Fatalf("expected empty board with non-nil ranking, got %+v", board)
	}
}

func TestLevelFor(t *testing.T) {
	cases := map[int]string{
		-4: "Level 1",
		19: "Level 1",
		20: "Level 2",
		39: "Level 2",
		40: "Level 3",
		60: "Level 4",
		99: "Level 4",
	}
	for points, want := range cases {
		if got := LevelFor(points); got != want {
			t.Errorf("LevelFor(%d) = %s, want %s", points, got, want)
		}
	}
}
