package domain

import (
	"fmt"
	"strconv"
)

// Snapshot record keys.
const (
	KeyCurrentQuestionIndex = "currentQuestionIndex"
	KeySelectedIndex        = "selectedIndex"
	KeyIsResultShown        = "isResultShown"
	KeyScore                = "score"
	KeyPhase                = "phase"
	KeyTimeSaved            = "timeSaved"
	KeyTimerRemaining       = "timerRemaining"
	KeyHours                = "hours"
	KeyMinutes              = "minutes"
	KeySeconds              = "seconds"
	KeyIsCountingDown       = "isCountingDown"
	KeyScheduledAt          = "scheduledAt"
	KeyFeedbackRemaining    = "feedbackRemaining"
	KeyNextTickIn           = "nextTickIn"
)

// Snapshot is the minimal state needed to resume the engine after suspension.
type Snapshot struct {
	CurrentQuestionIndex int
	SelectedIndex        *int
	IsResultShown        bool
	Score                int
	Phase                Phase
	TimerRemaining       int
	SavedAt              float64 // epoch seconds
	Hours                int
	Minutes              int
	Seconds              int
	IsCountingDown       bool
	ScheduledAt          float64 // epoch seconds, 0 when nothing is scheduled
	FeedbackRemaining    float64 // seconds left of the post-answer delay
	NextTickIn           float64 // seconds until the running timer's next tick, 0 when none runs
}

// Record flattens the snapshot into the key/value form persisted by snapshot stores.
func (s Snapshot) Record() map[string]string {
	rec := map[string]string{
		KeyCurrentQuestionIndex: strconv.Itoa(s.CurrentQuestionIndex),
		KeyIsResultShown:        strconv.FormatBool(s.IsResultShown),
		KeyScore:                strconv.Itoa(s.Score),
		KeyPhase:                string(s.Phase),
		KeyTimeSaved:            strconv.FormatFloat(s.SavedAt, 'f', -1, 64),
		KeyTimerRemaining:       strconv.Itoa(s.TimerRemaining),
		KeyHours:                strconv.Itoa(s.Hours),
		KeyMinutes:              strconv.Itoa(s.Minutes),
		KeySeconds:              strconv.Itoa(s.Seconds),
		KeyIsCountingDown:       strconv.FormatBool(s.IsCountingDown),
		KeyScheduledAt:          strconv.FormatFloat(s.ScheduledAt, 'f', -1, 64),
		KeyFeedbackRemaining:    strconv.FormatFloat(s.FeedbackRemaining, 'f', -1, 64),
		KeyNextTickIn:           strconv.FormatFloat(s.NextTickIn, 'f', -1, 64),
	}
	if s.SelectedIndex != nil {
		rec[KeySelectedIndex] = strconv.Itoa(*s.SelectedIndex)
	}
	return rec
}

// SnapshotFromRecord decodes a flat record. An empty record yields ErrSnapshotNotFound,
// a missing or unknown phase yields ErrUnknownPhase.
func SnapshotFromRecord(rec map[string]string) (Snapshot, error) {
	if len(rec) == 0 {
		return Snapshot{}, ErrSnapshotNotFound
	}
	phase, err := ParsePhase(rec[KeyPhase])
	if err != nil {
		return Snapshot{}, err
	}

	d := recordDecoder{rec: rec}
	snap := Snapshot{
		Phase:                phase,
		CurrentQuestionIndex: d.int(KeyCurrentQuestionIndex),
		IsResultShown:        d.bool(KeyIsResultShown),
		Score:                d.int(KeyScore),
		SavedAt:              d.float(KeyTimeSaved),
		TimerRemaining:       d.int(KeyTimerRemaining),
		Hours:                d.int(KeyHours),
		Minutes:              d.int(KeyMinutes),
		Seconds:              d.int(KeySeconds),
		IsCountingDown:       d.bool(KeyIsCountingDown),
		ScheduledAt:          d.float(KeyScheduledAt),
		FeedbackRemaining:    d.float(KeyFeedbackRemaining),
		NextTickIn:           d.float(KeyNextTickIn),
	}
	if raw, ok := rec[KeySelectedIndex]; ok && raw != "" {
		idx := d.int(KeySelectedIndex)
		snap.SelectedIndex = &idx
	}
	if d.err != nil {
		return Snapshot{}, d.err
	}
	return snap, nil
}

// recordDecoder keeps the first decode error so callers can check once.
type recordDecoder struct {
	rec map[string]string
	err error
}

func (d *recordDecoder) int(key string) int {
	raw, ok := d.rec[key]
	if !ok || raw == "" || d.err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedSnapshot, key, raw)
	}
	return v
}

func (d *recordDecoder) float(key string) float64 {
	raw, ok := d.rec[key]
	if !ok || raw == "" || d.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedSnapshot, key, raw)
	}
	return v
}

func (d *recordDecoder) bool(key string) bool {
	raw, ok := d.rec[key]
	if !ok || raw == "" || d.err != nil {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedSnapshot, key, raw)
	}
	return v
}
