package content

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/michezo/core/catalog"
)

// Difficulty tiers. An evaluation's difficulty picks the default range when
// the title carries no usable numeric intent.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var difficultyRanges = map[string]NumericRange{
	DifficultyEasy:   {Min: 0, Max: 10},
	DifficultyMedium: {Min: 0, Max: 50},
	DifficultyHard:   {Min: 0, Max: 100},
}

// DefaultRange returns the difficulty-tier default range.
// Unknown difficulties get the medium tier.
func DefaultRange(difficulty string) NumericRange {
	if r, ok := difficultyRanges[difficulty]; ok {
		return r
	}
	return difficultyRanges[DifficultyMedium]
}

// Intent is what could be extracted from free text. Both members are
// optional: a nil Range means the caller falls back to the difficulty
// default, an empty Theme requires an explicit skin or the neutral default.
type Intent struct {
	Range *NumericRange
	Theme string
	Rule  string // which pattern fired; for observability only
}

var (
	intRegex = regexp.MustCompile(`\d+`)
	// "números de 10 a 100", "del 30 al 40", "30 al 40", "10-100", "from 5 to 9"
	rangeRegex = regexp.MustCompile(`(?:del?\s+)?(\d+)\s+a(?:l)?\s+(\d+)|(\d+)\s*[-–]\s*(\d+)|from\s+(\d+)\s+to\s+(\d+)`)
	wordRegex  = regexp.MustCompile(`[\p{L}]+`)
)

const themeMatchRatio = 0.8

// ParseTitle extracts a numeric range and a theme hint from free-text title
// `s`. It is a pure function and never fails; malformed input degrades to
// the zero Intent so evaluation creation always succeeds.
//
// A range is recognized only when the text holds exactly two integers and
// they are joined by a range connector; inverted bounds are swapped. Theme
// detection is a case-insensitive keyword match against each skin's keyword
// set (first match wins), with a difflib near-miss fallback for word forms
// like "espacial" → "espacio".
func ParseTitle(s string, skins []catalog.SkinDescriptor) Intent {
	var intent Intent
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return intent
	}

	if ints := intRegex.FindAllString(lower, -1); len(ints) == 2 {
		if m := rangeRegex.FindStringSubmatch(lower); m != nil {
			a, b := pairFromMatch(m)
			if a > b {
				a, b = b, a
			}
			intent.Range = &NumericRange{Min: a, Max: b}
			intent.Rule = "range_connector"
		}
	}

	intent.Theme = detectTheme(lower, skins)
	if intent.Theme != "" && intent.Rule == "" {
		intent.Rule = "theme_keyword"
	}
	return intent
}

func pairFromMatch(m []string) (int, int) {
	for i := 1; i < len(m); i += 2 {
		if m[i] != "" {
			a, _ := strconv.Atoi(m[i])
			b, _ := strconv.Atoi(m[i+1])
			return a, b
		}
	}
	return 0, 0
}

func detectTheme(lower string, skins []catalog.SkinDescriptor) string {
	for _, skin := range skins {
		for _, kw := range skin.Keywords {
			if strings.Contains(lower, kw) {
				return skin.Theme
			}
		}
	}
	// near-miss pass: compare every word against every keyword
	words := wordRegex.FindAllString(lower, -1)
	for _, skin := range skins {
		for _, kw := range skin.Keywords {
			for _, word := range words {
				ratio := difflib.NewMatcher(strings.Split(word, ""), strings.Split(kw, "")).QuickRatio()
				if ratio >= themeMatchRatio {
					return skin.Theme
				}
			}
		}
	}
	return ""
}
