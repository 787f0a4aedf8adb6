// Package studio holds the session state of one AI Vision Studio user: the
// current image, the UI phase, the latest analysis, and the last error.
//
// State changes only through Reduce, a pure function from (State, Event) to
// State. Controller owns one State, enforces the single-in-flight phase gate,
// and turns orchestration results into events.
package studio

import (
	"encoding/json"
	"fmt"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/filehandler"
)

// Phase is the UI phase. Exactly one is active.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseEditing    Phase = "editing"
)

// AnalysisKind records which analysis produced (or is producing) the result card.
type AnalysisKind string

const (
	AnalysisNone     AnalysisKind = ""
	AnalysisDescribe AnalysisKind = "describe"
	AnalysisSuggest  AnalysisKind = "suggest"
	AnalysisStory    AnalysisKind = "story"
)

// ParseAnalysisKind accepts "describe", "suggest", or "story".
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch k := AnalysisKind(s); k {
	case AnalysisDescribe, AnalysisSuggest, AnalysisStory:
		return k, nil
	default:
		return AnalysisNone, fmt.Errorf("%w: %q", ErrUnknownAnalysis, s)
	}
}

// Title is the heading shown above the analysis card.
func (k AnalysisKind) Title() string {
	switch k {
	case AnalysisDescribe:
		return "Image Description"
	case AnalysisSuggest:
		return "Creative Edit Suggestions"
	case AnalysisStory:
		return "A Story for You"
	default:
		return ""
	}
}

// Image is the current image with display details.
type Image struct {
	chat.Image
	Name     string
	Metadata *filehandler.ImageMetadata
}

// MarshalJSON exposes the image as a display locator rather than raw bytes.
func (img Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string                     `json:"name,omitempty"`
		MediaType string                     `json:"mediaType"`
		SizeBytes int                        `json:"sizeBytes"`
		DataURL   string                     `json:"dataUrl"`
		Metadata  *filehandler.ImageMetadata `json:"metadata,omitempty"`
	}{
		Name:      img.Name,
		MediaType: img.MIMEType,
		SizeBytes: len(img.Data),
		DataURL:   img.DataURL(),
		Metadata:  img.Metadata,
	})
}

// State is a snapshot of one session.
type State struct {
	Image       *Image                `json:"image"`
	Phase       Phase                 `json:"phase"`
	Kind        AnalysisKind          `json:"analysisKind,omitempty"`
	Result      string                `json:"analysisResult,omitempty"`
	Suggestions []chat.EditSuggestion `json:"suggestions,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// NewState returns the initial state: no image, idle, nothing to show.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Busy reports whether an operation is in flight.
func (s State) Busy() bool {
	return s.Phase != PhaseIdle
}

// HasAnalysis reports whether a result card is showing.
func (s State) HasAnalysis() bool {
	return s.Result != "" || len(s.Suggestions) > 0
}

// clone copies the state so callers cannot alias the suggestion slice.
func (s State) clone() State {
	if s.Suggestions != nil {
		s.Suggestions = append([]chat.EditSuggestion(nil), s.Suggestions...)
	}
	if s.Image != nil {
		img := *s.Image
		s.Image = &img
	}
	return s
}
