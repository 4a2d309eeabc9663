package api

import (
	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/wizard"
)

type sessionView struct {
	ID             string         `json:"id"`
	Step           wizard.Step    `json:"step"`
	Gender         design.Gender  `json:"gender,omitempty"`
	Style          *design.Style  `json:"style,omitempty"`
	Styles         []design.Style `json:"styles,omitempty"`
	Question       *questionView  `json:"question,omitempty"`
	Progress       float64        `json:"progress"`
	HasInspiration bool           `json:"hasInspiration"`
	Generating     bool           `json:"generating"`
	Error          string         `json:"error,omitempty"`
	Result         *resultView    `json:"result,omitempty"`
}

type questionView struct {
	catalog.QuizQuestion
	Index int `json:"index"`
	Total int `json:"total"`
}

type resultView struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Rationale     string              `json:"sentimentAnalysis"`
	ImageURL      string              `json:"imageUrl"`
	Traits        []string            `json:"traits"`
	Editing       bool                `json:"editing"`
	Processing    bool                `json:"processing"`
	SelectedColor *design.ColorChoice `json:"selectedColor,omitempty"`
	CanApply      bool                `json:"canApply"`
	Saved         bool                `json:"saved"`
	Edits         int                 `json:"edits"`
}

func viewOf(s *wizard.Session) sessionView {
	prefs := s.Preferences()
	v := sessionView{
		ID:             s.ID(),
		Step:           s.Step(),
		Gender:         prefs.Gender,
		Style:          prefs.Style,
		Progress:       s.QuizProgress(),
		HasInspiration: prefs.Inspiration != nil,
		Generating:     s.Generating(),
	}
	switch v.Step {
	case wizard.StepStyleSelection:
		v.Styles = s.Styles()
	case wizard.StepPsychQuiz:
		if q, index, total, ok := s.Question(); ok {
			v.Question = &questionView{QuizQuestion: q, Index: index, Total: total}
		}
	}
	if s.Failure() != nil {
		v.Error = wizard.GenerationFailureMessage
	}
	if st := s.Studio(); st != nil {
		d := st.Design()
		v.Result = &resultView{
			Title:         st.StyleName() + " Reimagined",
			Description:   d.DescriptiveText,
			Rationale:     d.RationaleText,
			ImageURL:      "/api/sessions/" + s.ID() + "/design/image",
			Traits:        s.Traits(),
			Editing:       st.Editing(),
			Processing:    st.Processing(),
			SelectedColor: st.SelectedColor(),
			CanApply:      st.CanApply(),
			Saved:         st.Saved(),
			Edits:         st.Edits(),
		}
	}
	return v
}

type historyEntryView struct {
	ID           string        `json:"id"`
	CreatedAt    int64         `json:"timestamp"`
	StyleName    string        `json:"styleName"`
	Gender       design.Gender `json:"gender"`
	Description  string        `json:"description"`
	Rationale    string        `json:"sentimentAnalysis"`
	ImageURL     string        `json:"imageUrl"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	DownloadName string        `json:"downloadName"`
}

func historyViewOf(entries []design.SavedDesign, downloadName func(design.SavedDesign) string) []historyEntryView {
	out := make([]historyEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryView{
			ID:           e.ID,
			CreatedAt:    e.CreatedAt,
			StyleName:    e.StyleName,
			Gender:       e.Gender,
			Description:  e.DescriptiveText,
			Rationale:    e.RationaleText,
			ImageURL:     "/api/history/" + e.ID + "/image",
			ThumbnailURL: "/api/history/" + e.ID + "/thumbnail",
			DownloadName: downloadName(e),
		})
	}
	return out
}
