package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
)

func TestBuildDigest_EmptyWithoutOverdue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{Title: "future", Status: model.TaskStatusInProgress, DueDate: now.Add(24 * time.Hour)},
		{Title: "no due date", Status: model.TaskStatusPlanning},
		{Title: "done late", Status: model.TaskStatusCompleted, DueDate: now.Add(-24 * time.Hour)},
	}
	if got := BuildDigest(tasks, now); got != "" {
		t.Fatalf("expected empty digest, got %q", got)
	}
}

func TestBuildDigest_MostOverdueFirst(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{Title: "slightly late", Status: model.TaskStatusInProgress, DueDate: now.Add(-26 * time.Hour)},
		{Title: "very late", Status: model.TaskStatusAtRisk, DueDate: now.Add(-10 * 24 * time.Hour)},
	}

	got := BuildDigest(tasks, now)
	if got == "" {
		t.Fatalf("expected digest")
	}
	if strings.Index(got, "very late") > strings.Index(got, "slightly late") {
		t.Fatalf("digest not sorted by overdue age:\n%s", got)
	}
	if !strings.Contains(got, "под угрозой") {
		t.Fatalf("digest missing localized stage:\n%s", got)
	}
}

func TestBuildDailySpec(t *testing.T) {
	if _, err := buildDailySpec("9:30"); err != nil {
		t.Fatalf("valid time rejected: %v", err)
	}
	for _, bad := range []string{"930", "25:00", "10:99", "aa:bb"} {
		if _, err := buildDailySpec(bad); err == nil {
			t.Fatalf("invalid time %q accepted", bad)
		}
	}
}
