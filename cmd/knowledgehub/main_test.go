package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("ENV", "production")
	t.Setenv("BCRYPT_COST", "4")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBootstrapCommand(t *testing.T) {
	out, err := run(t, "bootstrap")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !strings.Contains(out, "seeded 3 accounts") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLeaderboardCommand_EmptyStore(t *testing.T) {
	out, err := run(t, "leaderboard", "--timeframe", "month")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var board domain.Leaderboard
	if err := json.Unmarshal([]byte(out), &board); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(board.Ranking) != 0 {
		t.Fatalf("expected empty ranking, got %+v", board.Ranking)
	}
}

func TestLeaderboardCommand_BadTimeframe(t *testing.T) {
	if _, err := run(t, "leaderboard", "--timeframe", "year"); err == nil {
		t.Fatal("expected an error for an unknown timeframe")
	}
}

func TestBackendOverride_Invalid(t *testing.T) {
	_, err := run(t, "--backend", "cassandra", "bootstrap")
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
