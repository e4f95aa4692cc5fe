package gate

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hako/durafmt"
	_ "golang.org/x/image/webp"

	"melody-gate/api"
	"melody-gate/debug"
)

// DownloadName is the filename generated images are saved under.
const DownloadName = "generated-image.png"

const (
	StatusGenerating = "Generating..."
	StatusDone       = "Done!"
)

// ErrNoResult is returned by Download when nothing has been generated yet.
var ErrNoResult = errors.New("no generated image to download")

// Category is a kind of image the service can generate, with prompt ideas.
type Category struct {
	Name        string
	Suggestions []string
}

// Categories in form order; the first is the default.
var Categories = []Category{
	{"blueprint", []string{
		"A detailed floor plan of a futuristic house",
		"Mechanical schematic of a flying car",
		"Blueprint of a steampunk airship",
	}},
	{"artwork", []string{
		"A serene landscape with mountains at sunset",
		"Surreal portrait of a person made of flowers",
		"Cyberpunk city skyline at night",
	}},
	{"tattoo", []string{
		"Minimalist line drawing of a wolf",
		"Traditional Japanese koi fish",
		"Geometric mandala with fine lines",
	}},
}

// Result is the last generated image and what we know about it.
type Result struct {
	Data        []byte
	ContentType string
	Ref         string // local handle, like a browser blob URL
	Format      string // decoded format, empty if unrecognised
	Width       int
	Height      int
	Took        time.Duration
}

// Size is the payload size in human units.
func (r *Result) Size() string {
	return humanize.Bytes(uint64(len(r.Data)))
}

// Summary is the one-line description shown with the result.
func (r *Result) Summary() string {
	var parts []string
	if r.Format != "" {
		parts = append(parts, r.Format, humanize.Comma(int64(r.Width))+"×"+humanize.Comma(int64(r.Height)))
	} else if r.ContentType != "" {
		parts = append(parts, r.ContentType)
	}
	parts = append(parts, r.Size())
	if r.Took > 0 {
		parts = append(parts, "in "+durafmt.Parse(r.Took.Round(100*time.Millisecond)).LimitFirstN(2).String())
	}
	return strings.Join(parts, ", ")
}

// NewResult wraps a successful generation.
func NewResult(res api.GenerateResult) *Result {
	r := &Result{
		Data:        res.Image,
		ContentType: res.ContentType,
		Ref:         "blob:" + uuid.NewString(),
		Took:        res.Duration,
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Image)); err == nil {
		r.Format, r.Width, r.Height = format, cfg.Width, cfg.Height
	}
	return r
}

// Saver stores a downloaded image and returns where it went.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

type generation struct {
	category  int
	prompt    string
	status    string
	inFlight  bool
	result    *Result
	lastSaved string
}

// Category returns the selected category.
func (s *Session) Category() Category {
	return Categories[s.gen.category]
}

// SetCategory selects a category by name; unknown names are ignored.
func (s *Session) SetCategory(name string) bool {
	for i, c := range Categories {
		if c.Name == name {
			s.gen.category = i
			return true
		}
	}
	return false
}

// CycleCategory moves the selection by delta, wrapping around.
func (s *Session) CycleCategory(delta int) {
	n := len(Categories)
	s.gen.category = ((s.gen.category+delta)%n + n) % n
}

// Suggestions are the prompt ideas for the selected category.
func (s *Session) Suggestions() []string {
	return s.Category().Suggestions
}

// UseSuggestion fills the prompt with suggestion i.
func (s *Session) UseSuggestion(i int) bool {
	sugg := s.Suggestions()
	if i < 0 || i >= len(sugg) {
		return false
	}
	s.gen.prompt = sugg[i]
	return true
}

func (s *Session) Prompt() string { return s.gen.prompt }

func (s *Session) SetPrompt(p string) { s.gen.prompt = p }

func (s *Session) GenerateStatus() string { return s.gen.status }

func (s *Session) Generating() bool { return s.gen.inFlight }

// Result returns the last generated image, or nil.
func (s *Session) Result() *Result { return s.gen.result }

// CanGenerate reports whether the generate control is enabled.
func (s *Session) CanGenerate() bool {
	return s.view == ViewGenerate && !s.gen.inFlight && strings.TrimSpace(s.gen.prompt) != ""
}

// BeginGenerate disables the form, drops the previous result and returns the
// request to send.
func (s *Session) BeginGenerate() (api.GenerateRequest, bool) {
	if !s.CanGenerate() {
		return api.GenerateRequest{}, false
	}
	s.gen.inFlight = true
	s.gen.result = nil
	s.gen.status = StatusGenerating
	req := api.GenerateRequest{Type: s.Category().Name, Prompt: s.gen.prompt}
	debug.Breadcrumb("gate", "generating %s", req.Type)
	return req, true
}

// ApplyGenerate stores a successful image or reports the failure. The prompt
// is kept either way.
func (s *Session) ApplyGenerate(res api.GenerateResult) {
	s.gen.inFlight = false
	if !res.OK() {
		err := res.Err
		if err == nil {
			err = errors.New("generation failed")
		}
		debug.Error("gate", err, "generate")
		s.gen.status = "Error: " + err.Error()
		return
	}
	s.gen.result = NewResult(res)
	s.gen.status = StatusDone
	debug.Log("gate", "generated %s (%s)", s.gen.result.Ref, s.gen.result.Summary())
}

// Revise clears the result and the form so the user can start over.
func (s *Session) Revise() {
	s.gen.result = nil
	s.gen.status = ""
	s.gen.prompt = ""
	s.gen.category = 0
}

// Download hands the last image to saver under DownloadName.
func (s *Session) Download(saver Saver) (string, error) {
	if s.gen.result == nil {
		return "", ErrNoResult
	}
	path, err := saver.Save(DownloadName, s.gen.result.Data)
	if err != nil {
		debug.Error("gate", err, "download")
		return "", err
	}
	s.gen.lastSaved = path
	return path, nil
}

// LastSaved is where the most recent download went.
func (s *Session) LastSaved() string { return s.gen.lastSaved }
