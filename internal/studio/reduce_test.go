package studio

import (
	"testing"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/stretchr/testify/assert"
)

var (
	sampleImage = Image{Image: chat.Image{Data: []byte("img"), MIMEType: "image/png"}, Name: "a.png"}
	sampleIdeas = []chat.EditSuggestion{{Title: "Moon", Description: "Add a moon"}}
)

func TestReduceAnalysisExclusive(t *testing.T) {
	events := []Event{
		ImageSet{Image: sampleImage},
		OperationStarted{Phase: PhaseAnalyzing, Kind: AnalysisDescribe},
		AnalysisCompleted{Text: "A cat."},
		OperationStarted{Phase: PhaseAnalyzing, Kind: AnalysisSuggest},
		SuggestionsCompleted{Suggestions: sampleIdeas},
		OperationStarted{Phase: PhaseAnalyzing, Kind: AnalysisStory},
		AnalysisCompleted{Text: "Once upon a time."},
		SuggestionsCompleted{Suggestions: sampleIdeas},
		AnalysisCompleted{Text: "again"},
		Failed{Message: "boom"},
	}

	s := NewState()
	for _, e := range events {
		s = Reduce(s, e)
		assert.False(t, s.Result != "" && len(s.Suggestions) > 0, "result and suggestions both set after %T", e)
	}
}

func TestReduceCompletionReturnsToIdle(t *testing.T) {
	completions := []Event{
		ImageSet{Image: sampleImage},
		AnalysisCompleted{Text: "x"},
		SuggestionsCompleted{Suggestions: sampleIdeas},
		Failed{Message: "boom"},
	}
	for _, phase := range []Phase{PhaseGenerating, PhaseAnalyzing, PhaseEditing} {
		for _, done := range completions {
			s := Reduce(NewState(), OperationStarted{Phase: phase})
			assert.Equal(t, phase, s.Phase)
			s = Reduce(s, done)
			assert.Equal(t, PhaseIdle, s.Phase, "%s then %T", phase, done)
		}
	}
}

func TestReduceStartRules(t *testing.T) {
	base := State{
		Image:  &sampleImage,
		Phase:  PhaseIdle,
		Kind:   AnalysisDescribe,
		Result: "old description",
		Error:  "old error",
	}

	analyzing := Reduce(base, OperationStarted{Phase: PhaseAnalyzing, Kind: AnalysisStory})
	assert.Empty(t, analyzing.Error)
	assert.Empty(t, analyzing.Result)
	assert.Nil(t, analyzing.Suggestions)
	assert.Equal(t, AnalysisStory, analyzing.Kind)

	editing := Reduce(base, OperationStarted{Phase: PhaseEditing})
	assert.Empty(t, editing.Error)
	assert.Empty(t, editing.Result)
	assert.Equal(t, AnalysisNone, editing.Kind)

	generating := Reduce(base, OperationStarted{Phase: PhaseGenerating})
	assert.Empty(t, generating.Error)
	assert.Equal(t, "old description", generating.Result, "generation keeps the analysis until the new image arrives")

	assert.Equal(t, "old error", base.Error, "Reduce must not mutate its input")
}

func TestReduceImageSetClearsAnalysis(t *testing.T) {
	s := State{Image: &sampleImage, Kind: AnalysisSuggest, Suggestions: sampleIdeas}
	next := Image{Image: chat.Image{Data: []byte("new"), MIMEType: "image/jpeg"}}

	s = Reduce(s, ImageSet{Image: next})
	assert.Equal(t, "image/jpeg", s.Image.MIMEType)
	assert.Nil(t, s.Suggestions)
	assert.Equal(t, AnalysisNone, s.Kind)
}

func TestReduceFailureKeepsImage(t *testing.T) {
	s := Reduce(State{Image: &sampleImage}, OperationStarted{Phase: PhaseEditing})
	s = Reduce(s, Failed{Message: chat.MsgEditFailed})

	assert.Equal(t, chat.MsgEditFailed, s.Error)
	assert.Equal(t, sampleImage.Data, s.Image.Data)
}

func TestReduceDismissClearAndReset(t *testing.T) {
	s := State{Image: &sampleImage, Kind: AnalysisDescribe, Result: "text", Error: "oops"}

	dismissed := Reduce(s, ErrorDismissed{})
	assert.Empty(t, dismissed.Error)
	assert.Equal(t, "text", dismissed.Result)

	cleared := Reduce(s, AnalysisCleared{})
	assert.Empty(t, cleared.Result)
	assert.Equal(t, AnalysisNone, cleared.Kind)
	assert.Equal(t, "oops", cleared.Error)

	reset := Reduce(s, ResetRequested{})
	assert.Equal(t, NewState(), reset)
}

func TestReduceDoesNotAliasSuggestions(t *testing.T) {
	ideas := []chat.EditSuggestion{{Title: "A", Description: "a"}}
	s := Reduce(NewState(), SuggestionsCompleted{Suggestions: ideas})
	ideas[0].Title = "changed"
	assert.Equal(t, "A", s.Suggestions[0].Title)
}

func TestParseAnalysisKind(t *testing.T) {
	for _, k := range []string{"describe", "suggest", "story"} {
		got, err := ParseAnalysisKind(k)
		assert.NoError(t, err)
		assert.Equal(t, AnalysisKind(k), got)
	}
	_, err := ParseAnalysisKind("poem")
	assert.ErrorIs(t, err, ErrUnknownAnalysis)

	assert.Equal(t, "Image Description", AnalysisDescribe.Title())
	assert.Equal(t, "Creative Edit Suggestions", AnalysisSuggest.Title())
	assert.Equal(t, "A Story for You", AnalysisStory.Title())
}
