package session

import (
	"strings"
	"time"

	"github.com/trezcool/michezo/core/content"
)

// Status is a GameSession's lifecycle state. Transitions are monotonic
// and StatusEnded is terminal.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

var transitions = map[Status][]Status{
	StatusWaiting: {StatusActive, StatusEnded}, // end before start = cancel
	StatusActive:  {StatusPaused, StatusEnded},
	StatusPaused:  {StatusActive, StatusEnded},
	StatusEnded:   nil,
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// legacyIDPrefix is the alias prefix some historical clients put in front of
// session ids. CanonicalID is the single place it is recognized.
const legacyIDPrefix = "game_"

// CanonicalID normalizes a raw session id by stripping the known legacy
// alias prefix if present.
func CanonicalID(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), legacyIDPrefix)
}

type (
	// Answer is one accepted submission. Append-only for audit integrity:
	// an answer is never overwritten or removed.
	Answer struct {
		QuestionID  string    `json:"question_id"`
		Value       string    `json:"value"`
		Correct     bool      `json:"correct"`
		Points      int       `json:"points"`
		SubmittedAt time.Time `json:"submitted_at"` // UTC
	}

	Participant struct {
		ID          string    `json:"participant_id"`
		SessionID   string    `json:"session_id"`
		DisplayName string    `json:"display_name"`
		Answers     []Answer  `json:"answers"`
		Score       int       `json:"score"`
		JoinedAt    time.Time `json:"joined_at"` // UTC
	}

	// SkinOutcome records the best-effort skin application for a session:
	// either applied OK or degraded with the reason, never a hard failure.
	SkinOutcome struct {
		OK     bool   `json:"ok"`
		Reason string `json:"reason,omitempty"`
	}

	// GameSession is a live play session created from exactly one
	// Evaluation. It exclusively owns its Question and Participant lists.
	GameSession struct {
		ID               string             `json:"session_id"`
		EvaluationID     string             `json:"evaluation_id"`
		JoinCode         string             `json:"join_code"`
		Status           Status             `json:"status"`
		SkinTheme        string             `json:"applied_skin,omitempty"`
		Skin             SkinOutcome        `json:"skin_outcome"`
		TimeLimitMinutes int                `json:"time_limit_minutes"`
		Questions        []content.Question `json:"questions"`
		Participants     []Participant      `json:"participants"`
		CreatedAt        time.Time          `json:"created_at"`            // UTC
		StartedAt        time.Time          `json:"started_at,omitempty"`  // UTC
		EndedAt          time.Time          `json:"finished_at,omitempty"` // UTC
	}
)

// HasAnswered reports whether the participant already answered questionID.
func (p *Participant) HasAnswered(questionID string) bool {
	for _, ans := range p.Answers {
		if ans.QuestionID == questionID {
			return true
		}
	}
	return false
}

func (gs *GameSession) participant(id string) *Participant {
	for i := range gs.Participants {
		if gs.Participants[i].ID == id {
			return &gs.Participants[i]
		}
	}
	return nil
}

func (gs *GameSession) question(id string) *content.Question {
	for i := range gs.Questions {
		if gs.Questions[i].ID == id {
			return &gs.Questions[i]
		}
	}
	return nil
}

// HasParticipants reports whether anyone ever joined.
func (gs *GameSession) HasParticipants() bool { return len(gs.Participants) > 0 }

// Clone returns a deep copy, so repository reads never share mutable slices
// with callers.
func (gs GameSession) Clone() GameSession {
	cp := gs
	cp.Questions = append([]content.Question(nil), gs.Questions...)
	cp.Participants = make([]Participant, len(gs.Participants))
	for i, p := range gs.Participants {
		cp.Participants[i] = p
		cp.Participants[i].Answers = append([]Answer(nil), p.Answers...)
	}
	return cp
}
