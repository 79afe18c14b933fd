package storage

import (
	"math"
	"testing"
	"time"

	"github.com/claude/replog/internal/models"
)

// TestValuesClause verifies placeholder numbering across rows.
func TestValuesClause(t *testing.T) {
	tests := []struct {
		rows, cols int
		want       string
	}{
		{1, 1, "($1)"},
		{1, 3, "($1,$2,$3)"},
		{2, 2, "($1,$2),($3,$4)"},
		{3, 1, "($1),($2),($3)"},
		{0, 4, ""},
	}
	for _, tt := range tests {
		if got := valuesClause(tt.rows, tt.cols); got != tt.want {
			t.Errorf("valuesClause(%d, %d) = %q, want %q", tt.rows, tt.cols, got, tt.want)
		}
	}
}

// TestGroupHistoryKeysByRequestedName verifies that case-insensitive matches
// come back under the caller's spelling and missing exercises are absent.
func TestGroupHistoryKeysByRequestedName(t *testing.T) {
	hist := []historyRow{
		{name: "bench press", weight: 100, reps: 5},
		{name: "bench press", weight: 100, reps: 4},
		{name: "squat", weight: 140, reps: 3},
	}
	got := groupHistory([]string{"Bench Press", " SQUAT ", "Deadlift"}, hist)

	if len(got) != 2 {
		t.Fatalf("got %d exercises, want 2: %v", len(got), got)
	}
	bench := got["Bench Press"]
	if len(bench) != 2 || bench[0] != (models.PreviousSet{Weight: 100, Reps: 5}) || bench[1].Reps != 4 {
		t.Errorf("bench history = %v", bench)
	}
	if sq := got[" SQUAT "]; len(sq) != 1 || sq[0].Weight != 140 {
		t.Errorf("squat history = %v", sq)
	}
	if _, ok := got["Deadlift"]; ok {
		t.Error("exercise without history should be absent")
	}
}

// TestEstimateOneRepMax checks the Epley estimate and its edge cases.
func TestEstimateOneRepMax(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		reps   int
		want   float64
	}{
		{"100kg x 5", 100, 5, 116.65},
		{"80kg x 10", 80, 10, 106.64},
		{"single", 100, 1, 100},
		{"no reps", 100, 0, 0},
		{"bodyweight", 0, 12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateOneRepMax(tt.weight, tt.reps)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("EstimateOneRepMax(%v, %d) = %v, want %v", tt.weight, tt.reps, got, tt.want)
			}
		})
	}
}

// TestSummarizeExercise verifies per-session grouping, RPE averaging and the
// effort distribution.
func TestSummarizeExercise(t *testing.T) {
	day1 := time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 3)
	rpe := func(v float64) *float64 { return &v }

	h := summarizeExercise([]historySet{
		{date: day1, weight: 100, reps: 5, rpe: rpe(8)},
		{date: day1, weight: 100, reps: 5, rpe: rpe(9)},
		{date: day2, weight: 105, reps: 5, rpe: rpe(10)},
		{date: day2, weight: 90, reps: 8},
	})

	if h.TotalSets != 4 || h.TotalReps != 23 {
		t.Errorf("totals = %d sets, %d reps; want 4, 23", h.TotalSets, h.TotalReps)
	}
	if math.Abs(h.TonnageKg-2245) > 0.001 {
		t.Errorf("tonnage = %v, want 2245", h.TonnageKg)
	}
	if len(h.Progression) != 2 {
		t.Fatalf("got %d sessions, want 2", len(h.Progression))
	}

	first := h.Progression[0]
	if first.Date != "2026-02-01" || first.Sets != 2 || first.MaxWeight != 100 {
		t.Errorf("first session = %+v", first)
	}
	if first.AvgRPE == nil || *first.AvgRPE != 8.5 {
		t.Errorf("first avg RPE = %v, want 8.5", first.AvgRPE)
	}

	second := h.Progression[1]
	if second.MaxWeight != 105 || second.MaxReps != 8 {
		t.Errorf("second session = %+v", second)
	}
	if second.AvgRPE == nil || *second.AvgRPE != 10 {
		t.Errorf("second avg RPE should only count tracked sets, got %v", second.AvgRPE)
	}
	if math.Abs(h.BestOneRM-122.48) > 0.01 {
		t.Errorf("best e1RM = %v, want 122.48", h.BestOneRM)
	}

	wantBands := map[string]int{"max": 1, "hard": 2, "untracked": 1}
	if len(h.RPEDistribution) != len(wantBands) {
		t.Fatalf("bands = %+v", h.RPEDistribution)
	}
	for _, b := range h.RPEDistribution {
		if wantBands[b.Band] != b.Sets {
			t.Errorf("band %s = %d sets, want %d", b.Band, b.Sets, wantBands[b.Band])
		}
	}
}

// TestSummarizeExerciseEmpty verifies that no sets yield empty, non-nil slices.
func TestSummarizeExerciseEmpty(t *testing.T) {
	h := summarizeExercise(nil)
	if h.Progression == nil || h.RPEDistribution == nil {
		t.Error("empty history should serialize as empty arrays")
	}
	if h.TotalSets != 0 || h.BestOneRM != 0 {
		t.Errorf("unexpected totals: %+v", h)
	}
}

// TestPeriodIndexSortedNewestFirst verifies that rows from separate queries
// merge into one period and come back newest first.
func TestPeriodIndexSortedNewestFirst(t *testing.T) {
	p := newPeriodIndex()
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	p.get(jan).Sessions = &SessionPeriodSummary{Sessions: 3}
	p.get(feb).Strength = &StrengthVolumeSummary{WorkingSets: 40}
	p.get(jan).Strength = &StrengthVolumeSummary{WorkingSets: 55}

	got := p.sorted()
	if len(got) != 2 {
		t.Fatalf("got %d periods, want 2", len(got))
	}
	if got[0].Period != "2026-02-01" || got[1].Period != "2026-01-01" {
		t.Errorf("order = %s, %s", got[0].Period, got[1].Period)
	}
	if got[1].Sessions == nil || got[1].Strength == nil || got[1].Strength.WorkingSets != 55 {
		t.Errorf("january not merged: %+v", got[1])
	}
}

// TestTruncInterval verifies bucket names map to date_trunc fields.
func TestTruncInterval(t *testing.T) {
	tests := map[string]string{
		"1 day":   "day",
		"week":    "week",
		"1 week":  "week",
		"1 month": "month",
		"":        "month",
		"bogus":   "month",
	}
	for in, want := range tests {
		if got := truncInterval(in); got != want {
			t.Errorf("truncInterval(%q) = %q, want %q", in, got, want)
		}
	}
}
