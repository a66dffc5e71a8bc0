package domain

import "fmt"

// Phase is the current stage of the quiz lifecycle.
type Phase string

const (
	PhaseWaitingForSchedule Phase = "waitingForSchedule"
	PhaseCountdownToStart   Phase = "countdownToStart"
	PhaseQuestion           Phase = "question"
	PhaseInterval           Phase = "interval"
	PhaseFinished           Phase = "finished"
)

// ParsePhase maps a persisted phase string back to a Phase.
func ParsePhase(raw string) (Phase, error) {
	switch p := Phase(raw); p {
	case PhaseWaitingForSchedule, PhaseCountdownToStart, PhaseQuestion, PhaseInterval, PhaseFinished:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, raw)
}

// Question models a flag question with exactly one correct option.
type Question struct {
	ID                 int      `json:"id"`
	ImageKey           string   `json:"imageKey"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// Validate checks that the correct option resolves into Options.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidQuestion, q.ID, q.CorrectOptionIndex)
	}
	return nil
}

// ValidQuestions returns the questions that pass Validate, preserving order.
func ValidQuestions(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Validate() == nil {
			out = append(out, q)
		}
	}
	return out
}

// State is the observable view of the engine handed to the presentation layer.
type State struct {
	Phase                  Phase     `json:"phase"`
	CurrentQuestionIndex   int       `json:"currentQuestionIndex"`
	QuestionCount          int       `json:"questionCount"`
	CurrentQuestion        *Question `json:"currentQuestion,omitempty"`
	SelectedIndex          *int      `json:"selectedIndex"`
	IsResultShown          bool      `json:"isResultShown"`
	Score                  int       `json:"score"`
	QuestionTimerRemaining int       `json:"questionTimerRemaining"`
	IntervalTimerRemaining int       `json:"intervalTimerRemaining"`
	CountdownRemaining     int       `json:"countdownRemaining"`
	IsCountingDown         bool      `json:"isCountingDown"`
	Hours                  int       `json:"hours"`
	Minutes                int       `json:"minutes"`
	Seconds                int       `json:"seconds"`
}
