package session

import (
	"sort"
	"time"

	"github.com/trezcool/michezo/core/catalog"
	"github.com/trezcool/michezo/core/content"
)

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

type (
	// PlayQuestion is a Question stripped of its answer key. It is the only
	// question shape participants ever see while a session runs.
	PlayQuestion struct {
		ID        string                `json:"id"`
		Order     int                   `json:"order"`
		Stem      string                `json:"stem"`
		Options   []string              `json:"options"`
		Points    int                   `json:"points"`
		VisualAid content.VisualAidSpec `json:"visual_aid_spec"`
		Counting  *PlayCounting         `json:"counting,omitempty"`
	}

	// PlayCounting is the participant projection of a counting payload. The
	// target quantity is the answer key and never leaves the host view.
	PlayCounting struct {
		Noun string `json:"noun"`
		Icon string `json:"icon"`
	}

	// SkinRendering carries the client-facing bits of the applied skin.
	SkinRendering struct {
		Theme     string          `json:"theme"`
		ThemeName string          `json:"theme_name"`
		Palette   catalog.Palette `json:"palette"`
		Icons     []string        `json:"icons"`
	}

	// View is a role-scoped projection of a session. Host views include the
	// full question set with answer keys; participant views do not.
	View struct {
		ID               string         `json:"id"`
		EvaluationID     string         `json:"evaluation_id,omitempty"`
		JoinCode         string         `json:"join_code,omitempty"`
		Status           Status         `json:"status"`
		Skin             SkinRendering  `json:"skin"`
		SkinOutcome      *SkinOutcome   `json:"skin_outcome,omitempty"`
		TimeLimitMinutes int            `json:"time_limit_minutes,omitempty"`
		ParticipantCount int            `json:"participant_count"`
		Participants     []Participant  `json:"participants,omitempty"`
		Questions        []content.Question `json:"questions,omitempty"`
		PlayQuestions    []PlayQuestion `json:"play_questions,omitempty"`
		CreatedAt        time.Time      `json:"created_at"`
		StartedAt        *time.Time     `json:"started_at,omitempty"`
		EndedAt          *time.Time     `json:"ended_at,omitempty"`
	}

	Rank struct {
		Position    int       `json:"position"`
		Participant string    `json:"participant_id"`
		DisplayName string    `json:"display_name"`
		Score       int       `json:"score"`
		Answered    int       `json:"answered"`
		JoinedAt    time.Time `json:"-"`
	}
)

// Resolve fetches a session by raw id, legacy prefixes included, and projects
// it for the given role.
func (svc *Service) Resolve(rawID string, role Role) (View, error) {
	gs, err := svc.GetByID(rawID)
	if err != nil {
		return View{}, err
	}
	return svc.view(gs, role), nil
}

func (svc *Service) view(gs GameSession, role Role) View {
	v := View{
		ID:               gs.ID,
		Status:           gs.Status,
		Skin:             svc.rendering(gs),
		TimeLimitMinutes: gs.TimeLimitMinutes,
		ParticipantCount: len(gs.Participants),
		CreatedAt:        gs.CreatedAt,
	}
	if !gs.StartedAt.IsZero() {
		t := gs.StartedAt
		v.StartedAt = &t
	}
	if !gs.EndedAt.IsZero() {
		t := gs.EndedAt
		v.EndedAt = &t
	}

	if role == RoleHost {
		v.EvaluationID = gs.EvaluationID
		v.JoinCode = gs.JoinCode
		v.Participants = gs.Participants
		v.Questions = gs.Questions
		outcome := gs.Skin
		v.SkinOutcome = &outcome
		return v
	}

	v.PlayQuestions = make([]PlayQuestion, len(gs.Questions))
	for i, q := range gs.Questions {
		pq := PlayQuestion{
			ID:        q.ID,
			Order:     q.Order,
			Stem:      q.Stem,
			Options:   q.Options,
			Points:    q.Points,
			VisualAid: q.VisualAid,
		}
		if q.Counting != nil {
			pq.Counting = &PlayCounting{Noun: q.Counting.Noun, Icon: q.Counting.Icon}
		}
		v.PlayQuestions[i] = pq
	}
	return v
}

func (svc *Service) rendering(gs GameSession) SkinRendering {
	r := SkinRendering{Theme: gs.SkinTheme}
	if len(gs.Questions) == 0 {
		return r
	}
	sd, err := svc.registry.Skin(gs.SkinTheme, firstEngine(gs))
	if err != nil {
		return r
	}
	r.ThemeName = sd.Name
	r.Palette = sd.Palette
	r.Icons = sd.Vocabulary.Icons
	return r
}

func firstEngine(gs GameSession) string {
	if gs.Questions[0].Interaction() == catalog.InteractionOperation {
		return catalog.EngineOperations
	}
	return catalog.EngineCounting
}

// Leaderboard ranks participants by score descending; ties break by earliest
// join so latecomers never leapfrog on equal scores.
func (svc *Service) Leaderboard(rawID string) ([]Rank, error) {
	gs, err := svc.GetByID(rawID)
	if err != nil {
		return nil, err
	}
	ranks := make([]Rank, len(gs.Participants))
	for i, p := range gs.Participants {
		ranks[i] = Rank{
			Participant: p.ID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Answered:    len(p.Answers),
			JoinedAt:    p.JoinedAt,
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		return ranks[i].JoinedAt.Before(ranks[j].JoinedAt)
	})
	for i := range ranks {
		ranks[i].Position = i + 1
	}
	return ranks, nil
}
