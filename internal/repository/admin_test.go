package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// TestBuildAIRequestWhereEmpty проверяет запрос без фильтров.
func TestBuildAIRequestWhereEmpty(t *testing.T) {
	where, args := buildAIRequestWhere(AIRequestFilter{})
	if where != "" {
		t.Fatalf("expected empty where, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

// TestBuildAIRequestWhereAll проверяет нумерацию параметров фильтра.
func TestBuildAIRequestWhereAll(t *testing.T) {
	playerID := uuid.New()
	success := false
	requestType := "missions"

	where, args := buildAIRequestWhere(AIRequestFilter{
		PlayerID:    &playerID,
		Success:     &success,
		RequestType: &requestType,
	})

	want := " WHERE player_id = $1 AND success = $2 AND request_type = $3"
	if where != want {
		t.Fatalf("expected %q, got %q", want, where)
	}
	if len(args) != 3 || args[0] != playerID || args[1] != false || args[2] != "missions" {
		t.Fatalf("unexpected args %v", args)
	}
}

// TestExcerptTrimsLongPrompts проверяет обрезку промпта по рунам.
func TestExcerptTrimsLongPrompts(t *testing.T) {
	if got := excerpt("  short prompt  ", 20); got != "short prompt" {
		t.Fatalf("expected trimmed prompt, got %q", got)
	}

	got := excerpt(strings.Repeat("ё", 10), 4)
	if got != "ёёёё…" {
		t.Fatalf("expected four runes and ellipsis, got %q", got)
	}
}
