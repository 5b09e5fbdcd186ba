package catalog

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrEngineNotFound   = errors.New("engine not found")
	ErrSkinNotFound     = errors.New("skin not found")
	ErrSkinIncompatible = errors.New("skin is not compatible with this engine")
)

// InteractionType is the pedagogical interaction mechanism an engine implements,
// independent of any visual theme.
type InteractionType string

const (
	InteractionCounting  InteractionType = "counting"
	InteractionOperation InteractionType = "operation"
)

type (
	// EngineDescriptor is an immutable catalog entry describing a game engine.
	EngineDescriptor struct {
		ID                   string          `json:"engine_id"`
		Name                 string          `json:"name"`
		Interaction          InteractionType `json:"interaction_type"`
		ContentSchema        string          `json:"content_schema"`
		CompatibleSkinThemes []string        `json:"compatible_skin_themes"`
	}

	// Vocabulary holds a skin's themed assets. Nouns, Icons and Sounds are
	// parallel slices: index i always renders the same recognizable group.
	Vocabulary struct {
		Nouns  []string `json:"nouns"`
		Icons  []string `json:"emoji"`
		Sounds []string `json:"sounds"`
	}

	Palette struct {
		Primary   string `json:"primary"`
		Secondary string `json:"secondary"`
		Accent    string `json:"accent"`
		Success   string `json:"success"`
		Error     string `json:"error"`
	}

	// Template is a narrative stem bound to one interaction type.
	// Placeholders: {icon} {noun} {count} {a} {b}.
	Template struct {
		Interaction InteractionType `json:"interaction_type"`
		Stem        string          `json:"stem"`
	}

	// SkinDescriptor is an immutable catalog entry describing a thematic overlay.
	SkinDescriptor struct {
		ID                string     `json:"skin_id"`
		Theme             string     `json:"theme_name"`
		Name              string     `json:"name"`
		ApplicableEngines []string   `json:"applicable_engines"`
		Vocabulary        Vocabulary `json:"vocabulary"`
		Palette           Palette    `json:"palette"`
		Templates         []Template `json:"narrative_templates"`
		Keywords          []string   `json:"keywords"`
		CatchPhrase       string     `json:"catch_phrase"`
	}
)

// TemplatesFor returns the skin's narrative templates matching the interaction type.
func (sd SkinDescriptor) TemplatesFor(it InteractionType) []Template {
	var tmpls []Template
	for _, t := range sd.Templates {
		if t.Interaction == it {
			tmpls = append(tmpls, t)
		}
	}
	return tmpls
}

func (sd SkinDescriptor) appliesTo(engineID string) bool {
	for _, id := range sd.ApplicableEngines {
		if id == engineID {
			return true
		}
	}
	return false
}

// Registry is the authored engine/skin catalog, loaded once at process start
// and injected into consuming components. It is immutable after construction.
type Registry struct {
	engines   map[string]EngineDescriptor
	engineIDs []string
	skins     map[string]SkinDescriptor
	themes    []string
}

// NewRegistry builds a Registry, checking the compatibility table for
// consistency: engine.CompatibleSkinThemes and skin.ApplicableEngines must
// describe the same many-to-many relation, and vocabulary slices must be
// parallel and non-empty.
func NewRegistry(engines []EngineDescriptor, skins []SkinDescriptor) (*Registry, error) {
	reg := &Registry{
		engines:   make(map[string]EngineDescriptor, len(engines)),
		engineIDs: make([]string, 0, len(engines)),
		skins:     make(map[string]SkinDescriptor, len(skins)),
		themes:    make([]string, 0, len(skins)),
	}
	for _, eng := range engines {
		if _, ok := reg.engines[eng.ID]; ok {
			return nil, errors.Errorf("catalog: duplicate engine %q", eng.ID)
		}
		reg.engines[eng.ID] = eng
		reg.engineIDs = append(reg.engineIDs, eng.ID)
	}
	for _, skin := range skins {
		if _, ok := reg.skins[skin.Theme]; ok {
			return nil, errors.Errorf("catalog: duplicate skin theme %q", skin.Theme)
		}
		voc := skin.Vocabulary
		if len(voc.Nouns) == 0 || len(voc.Nouns) != len(voc.Icons) || len(voc.Nouns) != len(voc.Sounds) {
			return nil, errors.Errorf("catalog: skin %q vocabulary slices must be parallel and non-empty", skin.Theme)
		}
		for _, engID := range skin.ApplicableEngines {
			eng, ok := reg.engines[engID]
			if !ok {
				return nil, errors.Errorf("catalog: skin %q references unknown engine %q", skin.Theme, engID)
			}
			if !contains(eng.CompatibleSkinThemes, skin.Theme) {
				return nil, errors.Errorf("catalog: asymmetric compatibility for skin %q / engine %q", skin.Theme, engID)
			}
			if len(skin.TemplatesFor(eng.Interaction)) == 0 {
				return nil, errors.Errorf("catalog: skin %q has no %s template for engine %q", skin.Theme, eng.Interaction, engID)
			}
		}
		reg.skins[skin.Theme] = skin
		reg.themes = append(reg.themes, skin.Theme)
	}
	for _, eng := range engines {
		for _, theme := range eng.CompatibleSkinThemes {
			skin, ok := reg.skins[theme]
			if !ok {
				return nil, errors.Errorf("catalog: engine %q references unknown skin theme %q", eng.ID, theme)
			}
			if !skin.appliesTo(eng.ID) {
				return nil, errors.Errorf("catalog: asymmetric compatibility for engine %q / skin %q", eng.ID, theme)
			}
		}
	}
	return reg, nil
}

// MustRegistry is NewRegistry for authored data known at compile time.
func MustRegistry(engines []EngineDescriptor, skins []SkinDescriptor) *Registry {
	reg, err := NewRegistry(engines, skins)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return reg
}

// Engine returns the engine descriptor for id.
func (reg *Registry) Engine(id string) (EngineDescriptor, error) {
	eng, ok := reg.engines[id]
	if !ok {
		return EngineDescriptor{}, ErrEngineNotFound
	}
	return eng, nil
}

// Engines enumerates all engines in authored order.
func (reg *Registry) Engines() []EngineDescriptor {
	engines := make([]EngineDescriptor, 0, len(reg.engineIDs))
	for _, id := range reg.engineIDs {
		engines = append(engines, reg.engines[id])
	}
	return engines
}

// Skin returns the skin for theme only if engineID is in its applicable engines.
func (reg *Registry) Skin(theme, engineID string) (SkinDescriptor, error) {
	skin, ok := reg.skins[theme]
	if !ok {
		return SkinDescriptor{}, ErrSkinNotFound
	}
	if !skin.appliesTo(engineID) {
		return SkinDescriptor{}, ErrSkinIncompatible
	}
	return skin, nil
}

// SkinsFor enumerates the skins compatible with engineID, in authored order.
func (reg *Registry) SkinsFor(engineID string) []SkinDescriptor {
	var skins []SkinDescriptor
	for _, theme := range reg.themes {
		if skin := reg.skins[theme]; skin.appliesTo(engineID) {
			skins = append(skins, skin)
		}
	}
	return skins
}

// Skins enumerates all skins in authored order.
func (reg *Registry) Skins() []SkinDescriptor {
	skins := make([]SkinDescriptor, 0, len(reg.themes))
	for _, theme := range reg.themes {
		skins = append(skins, reg.skins[theme])
	}
	return skins
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
