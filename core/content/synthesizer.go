package content

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core/catalog"
)

const (
	questionPoints = 10

	// emoji groups cap at this many repeated icons
	maxVisualItems = 10

	maxDistractorDelta = 3
)

var (
	// errors
	ErrInvalidCount = errors.New("question count must be positive")
	ErrInvalidRange = errors.New("range min must not exceed max")
)

// difficulty tiers prefer round quantities; harder tiers take arbitrary values
var roundingBias = map[string]struct {
	prob  float64
	steps []int
}{
	DifficultyEasy:   {0.6, []int{10, 5, 2}},
	DifficultyMedium: {0.3, []int{5, 2}},
	DifficultyHard:   {0, nil},
}

type (
	// Params describes one synthesis request. Engine and Skin must come from
	// the same Registry so their compatibility is already established.
	Params struct {
		Engine         catalog.EngineDescriptor
		Skin           catalog.SkinDescriptor
		Range          NumericRange
		ObjectiveCodes []string
		Difficulty     string
		Count          int
	}

	// Meta reports how a request was satisfied, including any relaxation of
	// a degenerate range.
	Meta struct {
		EngineID       string       `json:"engine_id"`
		SkinTheme      string       `json:"skin_theme"`
		RangeRequested NumericRange `json:"range_requested"`
		RangeUsed      NumericRange `json:"range_used"`
		RangeWidened   bool         `json:"range_widened"`
		GeneratedAt    time.Time    `json:"generated_at"`
	}

	// Synthesizer produces ordered, well-formed question sets.
	// Safe for concurrent use.
	Synthesizer struct {
		mu  sync.Mutex
		rng *rand.Rand
	}
)

// NewSynthesizer returns a Synthesizer. A seed may be passed for
// reproducible output in tests.
func NewSynthesizer(seed ...int64) *Synthesizer {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &Synthesizer{rng: rand.New(rand.NewSource(s))}
}

// Synthesize produces exactly Count questions for the engine/skin pair.
// Every correct answer is a member of its options and lies within the
// (possibly widened) range reported in Meta. It fails only on invalid
// params, never for a valid engine/skin pair.
func (s *Synthesizer) Synthesize(p Params) ([]Question, Meta, error) {
	if p.Count < 1 {
		return nil, Meta{}, ErrInvalidCount
	}
	if p.Range.Min > p.Range.Max {
		return nil, Meta{}, ErrInvalidRange
	}

	meta := Meta{
		EngineID:       p.Engine.ID,
		SkinTheme:      p.Skin.Theme,
		RangeRequested: p.Range,
		RangeUsed:      p.Range,
		GeneratedAt:    time.Now().UTC(),
	}
	// 4 distinct options need at least 4 distinct values; widen a degenerate
	// or too-narrow range by the minimal margin, alternating above and below
	// (quantities never go below zero).
	for meta.RangeUsed.Size() < 4 {
		meta.RangeWidened = true
		meta.RangeUsed.Max++
		if meta.RangeUsed.Size() < 4 && meta.RangeUsed.Min > 0 {
			meta.RangeUsed.Min--
		}
	}

	questions := make([]Question, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		qty := s.pickQuantity(i, p.Count, meta.RangeUsed, p.Difficulty)
		q := s.buildQuestion(i, qty, p.Engine, p.Skin, meta.RangeUsed)
		questions = append(questions, q)
	}
	return questions, meta, nil
}

// pickQuantity distributes quantities across the range: sequential walk for
// small ranges, segment sampling for large ones (so "10 a 100" does not
// cluster at 10), then snapped to the difficulty's preferred round multiple.
func (s *Synthesizer) pickQuantity(i, count int, r NumericRange, difficulty string) int {
	size := r.Size()
	var qty int
	if size <= 20 {
		qty = r.Min + i%size
	} else {
		seg := (size + count - 1) / count
		if seg < 1 {
			seg = 1
		}
		jitter := seg
		if jitter > 5 {
			jitter = 5
		}
		s.mu.Lock()
		qty = r.Min + i*seg + s.rng.Intn(jitter)
		s.mu.Unlock()
		if qty > r.Max {
			qty = r.Max
		}
	}

	bias, ok := roundingBias[difficulty]
	if !ok {
		bias = roundingBias[DifficultyMedium]
	}
	if bias.prob > 0 {
		s.mu.Lock()
		snap := s.rng.Float64() < bias.prob
		step := 0
		if snap {
			step = bias.steps[s.rng.Intn(len(bias.steps))]
		}
		s.mu.Unlock()
		if snap {
			if m := roundToMultiple(qty, step); r.Contains(m) {
				return m
			}
		}
	}
	return qty
}

func roundToMultiple(v, step int) int {
	if step <= 1 {
		return v
	}
	return (v + step/2) / step * step
}

func (s *Synthesizer) buildQuestion(order, qty int, eng catalog.EngineDescriptor, skin catalog.SkinDescriptor, r NumericRange) Question {
	voc := skin.Vocabulary
	// vocabulary and template are deterministically indexed by the quantity:
	// identical quantities always render the same recognizable group
	idx := qty % len(voc.Nouns)
	noun, icon, sound := voc.Nouns[idx], voc.Icons[idx], voc.Sounds[idx]
	tmpls := skin.TemplatesFor(eng.Interaction)
	stem := tmpls[qty%len(tmpls)].Stem

	q := Question{
		ID:            uuid.New().String(),
		Order:         order + 1,
		CorrectAnswer: strconv.Itoa(qty),
		Points:        questionPoints,
	}

	repl := []string{
		"{icon}", icon,
		"{noun}", noun,
		"{count}", strconv.Itoa(qty),
	}

	switch eng.Interaction {
	case catalog.InteractionOperation:
		a, b := s.splitOperands(qty)
		repl = append(repl, "{a}", strconv.Itoa(a), "{b}", strconv.Itoa(b))
		q.Operation = &OperationDetail{Operands: [2]int{a, b}, Operator: "+", Result: qty}
		q.Explanation = skin.CatchPhrase + " " + strconv.Itoa(a) + " + " + strconv.Itoa(b) + " = " + strconv.Itoa(qty) + " " + noun + ". ¡" + sound + "!"
		q.VisualAid = VisualAidSpec{
			Type:  VisualNumberLine,
			Items: []string{strconv.Itoa(a), "+", strconv.Itoa(b)},
		}
	default: // counting
		q.Counting = &CountingDetail{Target: qty, Noun: noun, Icon: icon}
		q.Explanation = skin.CatchPhrase + " Hay exactamente " + strconv.Itoa(qty) + " " + noun + ". ¡" + sound + "!"
		q.VisualAid = VisualAidSpec{Type: VisualEmojiGroup, Items: emojiGroup(icon, qty)}
	}

	q.Stem = strings.NewReplacer(repl...).Replace(stem)
	q.Options = s.buildOptions(qty, r)
	return q
}

// splitOperands splits a sum into two non-trivial addends where possible.
func (s *Synthesizer) splitOperands(sum int) (int, int) {
	if sum < 2 {
		return sum, 0
	}
	s.mu.Lock()
	a := 1 + s.rng.Intn(sum-1)
	s.mu.Unlock()
	return a, sum - a
}

// buildOptions offers the correct value plus 3 distractors within ±1..±3,
// deduplicated and clipped to the range, in shuffled order. The caller
// guarantees the range holds at least 4 distinct values.
func (s *Synthesizer) buildOptions(correct int, r NumericRange) []string {
	values := []int{correct}
	seen := map[int]bool{correct: true}

	s.mu.Lock()
	deltas := s.rng.Perm(2 * maxDistractorDelta)
	s.mu.Unlock()
	for _, d := range deltas {
		if len(values) == 4 {
			break
		}
		// 0..5 -> -3..-1, +1..+3
		off := d - maxDistractorDelta
		if off >= 0 {
			off++
		}
		if v := correct + off; r.Contains(v) && !seen[v] {
			values = append(values, v)
			seen[v] = true
		}
	}
	// near the range edges ±3 may not yield 3 in-range distractors; scan outward
	for delta := maxDistractorDelta + 1; len(values) < 4 && delta <= r.Size(); delta++ {
		for _, v := range []int{correct - delta, correct + delta} {
			if len(values) == 4 {
				break
			}
			if r.Contains(v) && !seen[v] {
				values = append(values, v)
				seen[v] = true
			}
		}
	}

	s.mu.Lock()
	s.rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	s.mu.Unlock()

	opts := make([]string, len(values))
	for i, v := range values {
		opts[i] = strconv.Itoa(v)
	}
	return opts
}

// emojiGroup repeats the icon, capped at maxVisualItems. It never states the
// quantity; the rendered group must not give the count away.
func emojiGroup(icon string, n int) []string {
	if n > maxVisualItems {
		n = maxVisualItems
	}
	items := make([]string, n)
	for i := range items {
		items[i] = icon
	}
	return items
}
