package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a workout session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusDiscarded SessionStatus = "discarded"
)

// Set is one logged (or planned) repetition block.
type Set struct {
	Reps      int      `json:"reps"`
	Weight    float64  `json:"weight"`
	RPE       *float64 `json:"rpe"`
	Completed bool     `json:"completed"`
}

// PreviousSet is one set from an earlier session of the same exercise.
type PreviousSet struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// Exercise is one movement within a session.
type Exercise struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	MuscleGroup  string        `json:"muscle_group"`
	TargetSets   int           `json:"targetSets"`
	TargetReps   int           `json:"targetReps"`
	Rest         Rest          `json:"rest"`
	Notes        string        `json:"notes"`
	IsSuperset   bool          `json:"isSuperset"`
	Tips         *string       `json:"tips"`
	Sets         []Set         `json:"sets"`
	PreviousBest []PreviousSet `json:"previousBest"`
}

// Clone returns a deep copy of the exercise.
func (e Exercise) Clone() Exercise {
	c := e
	if e.Tips != nil {
		tips := *e.Tips
		c.Tips = &tips
	}
	if e.Sets != nil {
		c.Sets = make([]Set, len(e.Sets))
		for i, s := range e.Sets {
			c.Sets[i] = s
			if s.RPE != nil {
				rpe := *s.RPE
				c.Sets[i].RPE = &rpe
			}
		}
	}
	if e.PreviousBest != nil {
		c.PreviousBest = append([]PreviousSet(nil), e.PreviousBest...)
	}
	return c
}

// ExerciseIdentity holds the fields replaced when a movement is swapped mid-session.
type ExerciseIdentity struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MuscleGroup string  `json:"muscle_group"`
	Tips        *string `json:"tips"`
}

// PRType identifies which personal record a completed set beat.
type PRType string

const (
	PRWeight PRType = "weight"
	PRReps   PRType = "reps"
	PRVolume PRType = "volume"
)

// PREvent is emitted when a completed set beats the exercise's previous best.
type PREvent struct {
	ExerciseName  string    `json:"exerciseName"`
	ExerciseIndex int       `json:"exerciseIndex"`
	SetIndex      int       `json:"setIndex"`
	Type          PRType    `json:"prType"`
	NewValue      float64   `json:"newValue"`
	OldValue      float64   `json:"oldValue"`
	AchievedAt    time.Time `json:"achievedAt"`
}

// Summary is the immutable record produced when a session completes.
type Summary struct {
	Name               string  `json:"name"`
	Score              int     `json:"score"`
	Grade              string  `json:"grade"`
	DurationMin        int     `json:"duration"`
	TotalVolume        float64 `json:"totalVolume"`
	TotalSets          int     `json:"totalSets"`
	TotalReps          int     `json:"totalReps"`
	EstimatedCalories  int     `json:"estimatedCalories"`
	ExercisesCompleted int     `json:"exercisesCompleted"`
}

// SessionState is the serializable snapshot of a live session. It is what the
// screen layer reads and what the recovery store persists.
type SessionState struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	StartedAt            time.Time     `json:"startedAt"`
	ElapsedSeconds       int           `json:"elapsedSeconds"`
	IsPaused             bool          `json:"isPaused"`
	Exercises            []Exercise    `json:"exercises"`
	CurrentExerciseIndex int           `json:"currentExerciseIndex"`
	DefaultRestSeconds   int           `json:"defaultRestSeconds"`
	RestTimerActive      bool          `json:"restTimerActive"`
	RestTimerSeconds     int           `json:"restTimerSeconds"`
	RestTimerRemaining   int           `json:"restTimerRemaining"`
	Status               SessionStatus `json:"status"`
	PRs                  []PREvent     `json:"prs"`
	PlannedMinutes       int           `json:"plannedMinutes,omitempty"`
	UpdatedAt            time.Time     `json:"updatedAt"`

	// Clock anchors used to recompute timers after a restore.
	AccumulatedMs int64      `json:"accumulatedMs"`
	ResumedAt     *time.Time `json:"resumedAt,omitempty"`
	RestEndsAt    *time.Time `json:"restEndsAt,omitempty"`
}

// Workout is the plan or template a session is launched from.
type Workout struct {
	Title     string     `json:"title"`
	Exercises []Exercise `json:"exercises"`
	Duration  int        `json:"duration"`
}

// Rest is an exercise's configured rest period. Plans carry it either as a
// number of seconds or as free text ("90", "90s", "1:30", "2 min").
type Rest struct {
	raw     string
	seconds int
}

// MaxRestSeconds caps any rest value at a day.
const MaxRestSeconds = 24 * 60 * 60

// RestSeconds builds a Rest from a number of seconds, clamped to
// [0, MaxRestSeconds].
func RestSeconds(sec int) Rest {
	sec = min(max(sec, 0), MaxRestSeconds)
	return Rest{raw: strconv.Itoa(sec), seconds: sec}
}

// Seconds returns the parsed duration, or 0 when unset or unparseable.
func (r Rest) Seconds() int { return r.seconds }

// String returns the value as originally supplied.
func (r Rest) String() string { return r.raw }

var restTextRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(s|sec|secs|seconds?|m|min|mins|minutes?)?$`)

// clampRest converts a parsed value to whole seconds within [0, MaxRestSeconds].
func clampRest(v float64) int {
	return int(min(max(v, 0), MaxRestSeconds))
}

// ParseRest interprets a free-text rest value. The text keeps its original
// casing; matching ignores case.
func ParseRest(s string) Rest {
	s = strings.TrimSpace(s)
	r := Rest{raw: s}
	if s == "" {
		return r
	}
	text := strings.ToLower(s)
	if mm, ss, ok := strings.Cut(text, ":"); ok {
		if isDigits(mm) && isDigits(ss) {
			m, _ := strconv.ParseFloat(mm, 64)
			sec, _ := strconv.ParseFloat(ss, 64)
			r.seconds = clampRest(m*60 + sec)
		}
		return r
	}
	m := restTextRe.FindStringSubmatch(text)
	if m == nil {
		return r
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return r
	}
	if strings.HasPrefix(m[2], "m") {
		v *= 60
	}
	r.seconds = clampRest(v)
	return r
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// MarshalJSON emits a number when the value parsed cleanly, the raw text otherwise.
func (r Rest) MarshalJSON() ([]byte, error) {
	if r.raw == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.Atoi(r.raw); err == nil && n == r.seconds {
		return []byte(r.raw), nil
	}
	return json.Marshal(r.raw)
}

// UnmarshalJSON accepts a number, a string, or null. Numbers are clamped to
// [0, MaxRestSeconds].
func (r *Rest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Rest{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("rest: %w", err)
		}
		*r = ParseRest(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("rest: %w", err)
	}
	*r = RestSeconds(clampRest(f))
	return nil
}

// StoredSession is a recovery snapshot together with its owner.
type StoredSession struct {
	UserID int
	State  SessionState
}
