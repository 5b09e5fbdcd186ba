package content

import (
	"strconv"
	"strings"

	"github.com/trezcool/michezo/core/catalog"
)

// NumericRange is an inclusive range of quantities, derived from title text
// or a difficulty-tier default. Invariant: Min <= Max.
type NumericRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r NumericRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }
func (r NumericRange) Size() int           { return r.Max - r.Min + 1 }
func (r NumericRange) Degenerate() bool    { return r.Min == r.Max }

type VisualAidType string

const (
	VisualEmojiGroup VisualAidType = "emoji-group"
	VisualNumberLine VisualAidType = "number-line"
	VisualChart      VisualAidType = "chart"
)

// VisualAidSpec is consumed by a rendering collaborator, never interpreted here.
type VisualAidSpec struct {
	Type  VisualAidType `json:"type"`
	Items []string      `json:"items"`
}

type (
	// CountingDetail is the ENG01 variant payload.
	CountingDetail struct {
		Target int    `json:"counting_target"`
		Noun   string `json:"noun"`
		Icon   string `json:"icon"`
	}

	// OperationDetail is the ENG02 variant payload.
	OperationDetail struct {
		Operands [2]int `json:"operands"`
		Operator string `json:"operator"`
		Result   int    `json:"result"`
	}
)

// Question is one generated item. Exactly one of the variant payloads
// (Counting, Operation) is set, matching the engine's interaction type.
// Never mutated once a session has participants.
type Question struct {
	ID            string        `json:"question_id"`
	Order         int           `json:"order"`
	Stem          string        `json:"stem"`
	Options       []string      `json:"options"`
	CorrectAnswer string        `json:"correct_answer"`
	Explanation   string        `json:"explanation"`
	Points        int           `json:"points"`
	VisualAid     VisualAidSpec `json:"visual_aid_spec"`

	Counting  *CountingDetail  `json:"counting,omitempty"`
	Operation *OperationDetail `json:"operation,omitempty"`
}

// Interaction reports which variant payload this question carries.
func (q Question) Interaction() catalog.InteractionType {
	if q.Operation != nil {
		return catalog.InteractionOperation
	}
	return catalog.InteractionCounting
}

// IsCorrect checks a submitted value against the correct answer by value,
// not by option position. "07" and "7" are the same answer.
func (q Question) IsCorrect(value string) bool {
	got := strings.TrimSpace(value)
	if got == q.CorrectAnswer {
		return true
	}
	gotN, err1 := strconv.Atoi(got)
	wantN, err2 := strconv.Atoi(q.CorrectAnswer)
	return err1 == nil && err2 == nil && gotN == wantN
}

// HasOption reports whether value is one of the offered options (by value).
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}
