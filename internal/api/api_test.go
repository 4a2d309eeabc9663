package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/chat/chattest"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/quiz"
	"github.com/fpang/noksha/internal/store"
	"github.com/fpang/noksha/internal/studio"
	"github.com/fpang/noksha/internal/wizard"
)

type testAPI struct {
	t        *testing.T
	srv      *httptest.Server
	reg      *Registry
	provider *chattest.Provider
	history  *history.History
}

func newTestAPI(t *testing.T, provider *chattest.Provider) *testAPI {
	t.Helper()
	h := history.New(store.NewMemoryStore())
	reg := NewRegistry(func() *wizard.Session {
		return wizard.New(provider, wizard.WithHistory(h))
	}, time.Hour, 10)
	srv := httptest.NewServer(NewServer(reg, h).Handler())
	t.Cleanup(func() {
		srv.Close()
		reg.CloseAll()
	})
	return &testAPI{t: t, srv: srv, reg: reg, provider: provider, history: h}
}

// call sends body as JSON and decodes a JSON response into out (if non-nil).
func (a *testAPI) call(method, path string, body, out any) int {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.srv.Client().Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (a *testAPI) mustCall(method, path string, body any, want int) sessionView {
	a.t.Helper()
	var v sessionView
	if got := a.call(method, path, body, &v); got != want {
		a.t.Fatalf("%s %s = %d, want %d", method, path, got, want)
	}
	return v
}

// quizDone drives a new session through the quiz and waits for the result.
func (a *testAPI) quizDone() sessionView {
	a.t.Helper()
	v := a.mustCall("POST", "/api/sessions", nil, http.StatusCreated)
	base := "/api/sessions/" + v.ID
	a.mustCall("POST", base+"/start", nil, http.StatusOK)
	a.mustCall("POST", base+"/gender", map[string]string{"gender": "Female"}, http.StatusOK)
	a.mustCall("POST", base+"/style", map[string]string{"styleId": "jamdani-fusion"}, http.StatusOK)
	for i := range catalog.PsychQuestions {
		path := base + "/answer"
		want := http.StatusOK
		if i == len(catalog.PsychQuestions)-1 {
			path += "?wait=1"
		}
		v = a.mustCall("POST", path, map[string]int{"option": 0}, want)
	}
	return v
}

func TestWizardFlow(t *testing.T) {
	a := newTestAPI(t, &chattest.Provider{})

	v := a.mustCall("POST", "/api/sessions", nil, http.StatusCreated)
	if v.Step != wizard.StepLanding {
		t.Fatalf("new session step = %v, want landing", v.Step)
	}
	base := "/api/sessions/" + v.ID

	v = a.mustCall("POST", base+"/start", nil, http.StatusOK)
	if v.Step != wizard.StepGenderSelection {
		t.Fatalf("step = %v, want gender_selection", v.Step)
	}
	v = a.mustCall("POST", base+"/gender", map[string]string{"gender": "Male"}, http.StatusOK)
	if len(v.Styles) == 0 {
		t.Fatal("style step lists no styles")
	}
	for _, st := range v.Styles {
		if st.Gender != design.GenderMale {
			t.Errorf("style %s offered for male", st.ID)
		}
	}
	a.mustCall("POST", base+"/back", nil, http.StatusOK)
	a.mustCall("POST", base+"/gender", map[string]string{"gender": "Female"}, http.StatusOK)

	inspiration := design.Image{Data: chattest.PNG(4, 4, color.White), MIMEType: "image/png"}
	v = a.mustCall("PUT", base+"/inspiration", map[string]string{"image": inspiration.DataURI()}, http.StatusOK)
	if !v.HasInspiration {
		t.Error("HasInspiration = false after upload")
	}

	v = a.mustCall("POST", base+"/style", map[string]string{"styleId": "jamdani-fusion"}, http.StatusOK)
	if v.Question == nil || v.Question.Index != 1 || v.Question.Total != len(catalog.PsychQuestions) {
		t.Fatalf("first question = %+v", v.Question)
	}

	for i := range catalog.PsychQuestions {
		path := base + "/answer"
		if i == len(catalog.PsychQuestions)-1 {
			path += "?wait=1"
		}
		v = a.mustCall("POST", path, map[string]int{"option": 1}, http.StatusOK)
	}
	if v.Step != wizard.StepResult || v.Result == nil {
		t.Fatalf("after quiz: step = %v, result = %v", v.Step, v.Result)
	}
	if v.Result.Title != "Jamdani Fusion Reimagined" {
		t.Errorf("Title = %q", v.Result.Title)
	}
	if v.Result.Rationale != chat.FallbackRationale {
		t.Errorf("Rationale = %q", v.Result.Rationale)
	}
	if len(v.Result.Traits) != len(catalog.PsychQuestions) {
		t.Errorf("Traits = %v", v.Result.Traits)
	}

	gens := a.provider.Generations()
	if len(gens) != 1 {
		t.Fatalf("Generate called %d times, want 1", len(gens))
	}
	if gens[0].Inspiration == nil || !gens[0].Inspiration.Equal(inspiration) {
		t.Error("inspiration not passed to generation")
	}

	resp, err := a.srv.Client().Get(a.srv.URL + v.Result.ImageURL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("design image Content-Type = %q", ct)
	}
}

func TestGenerationFailure(t *testing.T) {
	provider := &chattest.Provider{
		GenerateFunc: func(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
			return nil, design.NewError(design.KindGeneration, "failed to generate design image", errors.New("quota"))
		},
	}
	a := newTestAPI(t, provider)

	v := a.mustCall("POST", "/api/sessions", nil, http.StatusCreated)
	base := "/api/sessions/" + v.ID
	a.mustCall("POST", base+"/start", nil, http.StatusOK)
	a.mustCall("POST", base+"/gender", map[string]string{"gender": "Female"}, http.StatusOK)
	a.mustCall("POST", base+"/style", map[string]string{"styleId": "jamdani-fusion"}, http.StatusOK)
	for i := 0; i < len(catalog.PsychQuestions)-1; i++ {
		a.mustCall("POST", base+"/answer", map[string]int{"option": 0}, http.StatusOK)
	}

	var body map[string]string
	status := a.call("POST", base+"/answer?wait=1", map[string]int{"option": 0}, &body)
	if status != http.StatusBadGateway {
		t.Fatalf("final answer = %d, want 502", status)
	}
	if body["error"] != wizard.GenerationFailureMessage {
		t.Errorf("error = %q", body["error"])
	}

	v = a.mustCall("GET", base, nil, http.StatusOK)
	if v.Step != wizard.StepGenerating || v.Error != wizard.GenerationFailureMessage {
		t.Errorf("after failure: step = %v, error = %q", v.Step, v.Error)
	}
	v = a.mustCall("POST", base+"/restart", nil, http.StatusOK)
	if v.Step != wizard.StepLanding {
		t.Errorf("after restart: step = %v", v.Step)
	}
}

func TestEditSaveAndHistory(t *testing.T) {
	provider := &chattest.Provider{
		GenerateFunc: func(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
			return &design.Design{
				Image:           design.Image{Data: chattest.PNG(50, 60, color.White), MIMEType: "image/png"},
				DescriptiveText: prefs.Style.Description,
				RationaleText:   "Balanced and bright.",
			}, nil
		},
	}
	a := newTestAPI(t, provider)
	v := a.quizDone()
	base := "/api/sessions/" + v.ID

	var errBody map[string]string
	if got := a.call("POST", base+"/apply", nil, &errBody); got != http.StatusConflict {
		t.Errorf("apply outside edit mode = %d, want 409", got)
	}

	a.mustCall("POST", base+"/edit", map[string]any{"width": 50, "height": 60, "originX": 10, "originY": 20}, http.StatusOK)
	if got := a.call("POST", base+"/color", map[string]string{"label": "Teal"}, &errBody); got != http.StatusBadRequest {
		t.Errorf("unknown color = %d, want 400", got)
	}
	v = a.mustCall("POST", base+"/color", map[string]string{"label": "Emerald"}, http.StatusOK)
	if v.Result.CanApply {
		t.Error("CanApply = true with no strokes")
	}

	var strokes struct {
		CanApply bool `json:"canApply"`
	}
	events := map[string]any{"events": []pointerEvent{
		{Type: "down", X: 15, Y: 25},
		{Type: "move", X: 50, Y: 70},
		{Type: "up"},
	}}
	if got := a.call("POST", base+"/pointer", events, &strokes); got != http.StatusOK {
		t.Fatalf("pointer = %d", got)
	}
	if !strokes.CanApply {
		t.Fatal("CanApply = false after a stroke")
	}

	resp, err := a.srv.Client().Get(a.srv.URL + base + "/mask")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("mask = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	v = a.mustCall("POST", base+"/apply", nil, http.StatusOK)
	if v.Result.Editing || v.Result.Edits != 1 {
		t.Errorf("after apply: editing = %v, edits = %d", v.Result.Editing, v.Result.Edits)
	}
	edits := provider.Edits()
	if len(edits) != 1 || edits[0].ColorName != "Emerald Green" {
		t.Fatalf("edits = %+v", edits)
	}

	var saved struct {
		Created bool             `json:"created"`
		Design  historyEntryView `json:"design"`
	}
	if got := a.call("POST", base+"/save", nil, &saved); got != http.StatusCreated || !saved.Created {
		t.Fatalf("save = %d created=%v", got, saved.Created)
	}
	if got := a.call("POST", base+"/save", nil, &saved); got != http.StatusOK || saved.Created {
		t.Errorf("second save = %d created=%v, want 200 false", got, saved.Created)
	}

	var list struct {
		Designs []historyEntryView `json:"designs"`
	}
	a.call("GET", "/api/history", nil, &list)
	if len(list.Designs) != 1 || list.Designs[0].StyleName != "Jamdani Fusion" {
		t.Fatalf("history = %+v", list.Designs)
	}

	resp, err = a.srv.Client().Get(a.srv.URL + list.Designs[0].ImageURL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	wantDisp := fmt.Sprintf("attachment; filename=%q", list.Designs[0].DownloadName)
	if got := resp.Header.Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisp)
	}

	resp, err = a.srv.Client().Get(a.srv.URL + list.Designs[0].ThumbnailURL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("thumbnail Content-Type = %q", ct)
	}

	var shared studio.ShareResult
	a.call("POST", base+"/share", nil, &shared)
	if shared.Shared || shared.Notice != studio.UnsupportedShareNotice {
		t.Errorf("share = %+v, want unsupported notice", shared)
	}
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDesignDownloadNameFollowsMIMEType(t *testing.T) {
	provider := &chattest.Provider{
		GenerateFunc: func(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
			return &design.Design{
				Image:           design.Image{Data: jpegBytes(t), MIMEType: "image/jpeg"},
				DescriptiveText: prefs.Style.Description,
				RationaleText:   chat.FallbackRationale,
			}, nil
		},
	}
	a := newTestAPI(t, provider)
	v := a.quizDone()

	resp, err := a.srv.Client().Get(a.srv.URL + "/api/sessions/" + v.ID + "/design/image?download=1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	want := `attachment; filename="noksha-design.jpg"`
	if got := resp.Header.Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
}

func TestEditFailureKeepsDesign(t *testing.T) {
	provider := &chattest.Provider{
		RecolorFunc: func(ctx context.Context, req *chat.EditRequest) (design.Image, error) {
			return design.Image{}, design.NewError(design.KindEdit, "failed to recolor design", errors.New("boom"))
		},
	}
	a := newTestAPI(t, provider)
	v := a.quizDone()
	base := "/api/sessions/" + v.ID

	a.mustCall("POST", base+"/edit", map[string]any{"width": 20, "height": 20}, http.StatusOK)
	a.mustCall("POST", base+"/color", map[string]string{"label": "Gold"}, http.StatusOK)
	paths := map[string]any{"paths": [][]map[string]float64{{{"x": 2, "y": 2}, {"x": 18, "y": 18}}}}
	if got := a.call("POST", base+"/strokes", paths, nil); got != http.StatusOK {
		t.Fatalf("strokes = %d", got)
	}

	var body map[string]string
	if got := a.call("POST", base+"/apply", nil, &body); got != http.StatusBadGateway {
		t.Fatalf("apply = %d, want 502", got)
	}
	v = a.mustCall("GET", base, nil, http.StatusOK)
	if !v.Result.Editing || v.Result.Edits != 0 {
		t.Errorf("after failed apply: editing = %v, edits = %d", v.Result.Editing, v.Result.Edits)
	}
}

func TestRequestErrors(t *testing.T) {
	a := newTestAPI(t, &chattest.Provider{})
	v := a.mustCall("POST", "/api/sessions", nil, http.StatusCreated)
	base := "/api/sessions/" + v.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", "GET", "/api/sessions/nope", nil, http.StatusNotFound},
		{"gender before start", "POST", base + "/gender", map[string]string{"gender": "Female"}, http.StatusConflict},
		{"no studio yet", "GET", base + "/design", nil, http.StatusConflict},
		{"unknown field", "POST", base + "/style", map[string]string{"style": "x"}, http.StatusBadRequest},
		{"missing option", "POST", base + "/answer", map[string]string{}, http.StatusBadRequest},
		{"unknown history entry", "GET", "/api/history/nope/image", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			if got := a.call(tt.method, tt.path, tt.body, &body); got != tt.want {
				t.Errorf("%s %s = %d, want %d (%v)", tt.method, tt.path, got, tt.want, body)
			}
		})
	}

	a.mustCall("POST", base+"/start", nil, http.StatusOK)
	var body map[string]string
	if got := a.call("POST", base+"/gender", map[string]string{"gender": "other"}, &body); got != http.StatusBadRequest {
		t.Errorf("invalid gender = %d, want 400", got)
	}

	req, _ := http.NewRequest("DELETE", a.srv.URL+base, nil)
	resp, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", resp.StatusCode)
	}
	if a.reg.Len() != 0 {
		t.Errorf("registry still holds %d sessions", a.reg.Len())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{wizard.ErrWrongStep, http.StatusConflict},
		{studio.ErrEditInFlight, http.StatusConflict},
		{design.NewError(design.KindEmptyMask, "empty", nil), http.StatusConflict},
		{fmt.Errorf("answer: %w", quiz.ErrInvalidOption), http.StatusBadRequest},
		{design.NewError(design.KindMissingSelection, "pick a color", nil), http.StatusBadRequest},
		{fmt.Errorf("%w: unsupported format", wizard.ErrInvalidInspiration), http.StatusBadRequest},
		{studio.ErrDiscarded, http.StatusGone},
		{studio.ErrNoHistory, http.StatusNotImplemented},
		{ErrTooManySessions, http.StatusServiceUnavailable},
		{design.NewError(design.KindGeneration, "x", nil), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRegistryLimitAndSweep(t *testing.T) {
	provider := &chattest.Provider{}
	reg := NewRegistry(func() *wizard.Session { return wizard.New(provider) }, time.Minute, 2)
	defer reg.CloseAll()

	for i := 0; i < 2; i++ {
		if _, err := reg.Create(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := reg.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("third Create() error = %v, want ErrTooManySessions", err)
	}

	if n := reg.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep(now) = %d, want 0", n)
	}
	if n := reg.Sweep(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Errorf("Sweep(later) = %d, want 2", n)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after sweep", reg.Len())
	}
}

func TestCORSPreflight(t *testing.T) {
	a := newTestAPI(t, &chattest.Provider{})
	req, _ := http.NewRequest(http.MethodOptions, a.srv.URL+"/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); !strings.HasPrefix(got, "http://localhost") {
		t.Errorf("Allow-Origin = %q", got)
	}
}
