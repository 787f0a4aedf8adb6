// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// describePrompt asks the analysis model for a detailed description of the image.
//
//go:embed prompts/describe.txt
var describePrompt string

// storyPrompt asks the analysis model for a short story inspired by the image.
//
//go:embed prompts/story.txt
var storyPrompt string

//go:embed prompts/suggest-edits.txt
var suggestEditsTemplate string

// Pre-parsed at init; template.Must panics on a malformed template.
var suggestEditsTmpl = template.Must(template.New("suggest-edits").Parse(suggestEditsTemplate))

// SuggestPromptData holds the dynamic data injected into the suggest-edits template.
type SuggestPromptData struct {
	Count int
}

// DescribePrompt returns the fixed describe instruction.
func DescribePrompt() string { return strings.TrimSpace(describePrompt) }

// StoryPrompt returns the fixed story instruction.
func StoryPrompt() string { return strings.TrimSpace(storyPrompt) }

// RenderSuggestEditsPrompt renders the suggest-edits instruction for count suggestions.
func RenderSuggestEditsPrompt(count int) string {
	var buf bytes.Buffer
	// Execution cannot fail for this template and data shape.
	_ = suggestEditsTmpl.Execute(&buf, SuggestPromptData{Count: count})
	return strings.TrimSpace(buf.String())
}
