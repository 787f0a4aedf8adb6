package studio

import "github.com/fpang/ai-vision-studio/internal/chat"

// Event is a state transition request. Only the types in this file implement it.
type Event interface {
	event()
}

// OperationStarted moves into a busy phase. Kind is set for analyses.
type OperationStarted struct {
	Phase Phase
	Kind  AnalysisKind
}

// ImageSet replaces the current image after a generation, upload, or edit.
type ImageSet struct {
	Image Image
}

// AnalysisCompleted carries free-text output (description or story).
type AnalysisCompleted struct {
	Text string
}

// SuggestionsCompleted carries the edit suggestion list.
type SuggestionsCompleted struct {
	Suggestions []chat.EditSuggestion
}

// Failed records a user-visible error message.
type Failed struct {
	Message string
}

// ErrorDismissed clears the error.
type ErrorDismissed struct{}

// AnalysisCleared closes the result card.
type AnalysisCleared struct{}

// ResetRequested returns to the initial state.
type ResetRequested struct{}

func (OperationStarted) event()     {}
func (ImageSet) event()             {}
func (AnalysisCompleted) event()    {}
func (SuggestionsCompleted) event() {}
func (Failed) event()               {}
func (ErrorDismissed) event()       {}
func (AnalysisCleared) event()      {}
func (ResetRequested) event()       {}

// Reduce applies e to s and returns the new state. It never mutates s.
//
// Result and Suggestions are never both set, and every completion event
// (ImageSet, AnalysisCompleted, SuggestionsCompleted, Failed) returns the
// phase to idle.
func Reduce(s State, e Event) State {
	s = s.clone()

	switch e := e.(type) {
	case OperationStarted:
		s.Phase = e.Phase
		s.Error = ""
		switch e.Phase {
		case PhaseAnalyzing:
			s.clearAnalysis()
			s.Kind = e.Kind
		case PhaseEditing:
			s.clearAnalysis()
		}

	case ImageSet:
		img := e.Image
		s.Image = &img
		s.Phase = PhaseIdle
		s.Error = ""
		s.clearAnalysis()

	case AnalysisCompleted:
		s.Phase = PhaseIdle
		s.Result = e.Text
		s.Suggestions = nil

	case SuggestionsCompleted:
		s.Phase = PhaseIdle
		s.Result = ""
		s.Suggestions = nil
		if len(e.Suggestions) > 0 {
			s.Suggestions = append([]chat.EditSuggestion(nil), e.Suggestions...)
		}

	case Failed:
		s.Phase = PhaseIdle
		s.Error = e.Message
		if !s.HasAnalysis() {
			s.Kind = AnalysisNone
		}

	case ErrorDismissed:
		s.Error = ""

	case AnalysisCleared:
		s.clearAnalysis()

	case ResetRequested:
		s = NewState()
	}

	return s
}

func (s *State) clearAnalysis() {
	s.Result = ""
	s.Suggestions = nil
	s.Kind = AnalysisNone
}
