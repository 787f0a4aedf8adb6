package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type generateInput struct {
	Prompt string `json:"prompt" jsonschema:"text description of the image to create"`
}

type loadInput struct {
	Path string `json:"path" jsonschema:"absolute path of an image file on this machine"`
}

type editInput struct {
	Instruction string `json:"instruction" jsonschema:"plain-language description of the change to make"`
}

type noInput struct{}

// toolset adapts one studio.Controller to MCP tool handlers.
type toolset struct {
	ctrl *studio.Controller
}

func newServer(ctrl *studio.Controller) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "ai-vision-studio", Version: commitHash}, nil)
	t := &toolset{ctrl: ctrl}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_image",
		Description: "Create a new image from a text prompt. The result becomes the current image.",
	}, t.generateImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_image",
		Description: "Load an image file from disk as the current image.",
	}, t.loadImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_image",
		Description: "Describe the current image in detail.",
	}, t.analyze(studio.AnalysisDescribe))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_edits",
		Description: "Suggest creative edits for the current image.",
	}, t.analyze(studio.AnalysisSuggest))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_story",
		Description: "Write a short imaginative story based on the current image.",
	}, t.analyze(studio.AnalysisStory))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "edit_image",
		Description: "Edit the current image with a plain-language instruction. The result replaces the current image.",
	}, t.editImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_state",
		Description: "Show the current image and the latest analysis.",
	}, t.getState)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset",
		Description: "Discard the current image and analysis.",
	}, t.reset)

	return server
}

func (t *toolset) generateImage(ctx context.Context, _ *mcp.CallToolRequest, in generateInput) (*mcp.CallToolResult, any, error) {
	st, err := t.ctrl.Generate(ctx, in.Prompt)
	if err != nil {
		return nil, nil, toolError("generate_image", st, err)
	}
	return imageResult(st), nil, nil
}

func (t *toolset) loadImage(_ context.Context, _ *mcp.CallToolRequest, in loadInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, nil, errors.New("path is required")
	}
	st, err := t.ctrl.UploadFile(in.Path)
	if err != nil {
		return nil, nil, toolError("load_image", st, err)
	}
	return textResult(summarize(st)), nil, nil
}

func (t *toolset) analyze(kind studio.AnalysisKind) mcp.ToolHandlerFor[noInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		st, err := t.ctrl.Analyze(ctx, kind)
		if err != nil {
			return nil, nil, toolError(string(kind), st, err)
		}
		return textResult(formatAnalysis(st)), nil, nil
	}
}

func (t *toolset) editImage(ctx context.Context, _ *mcp.CallToolRequest, in editInput) (*mcp.CallToolResult, any, error) {
	st, err := t.ctrl.ApplyEdit(ctx, in.Instruction)
	if err != nil {
		return nil, nil, toolError("edit_image", st, err)
	}
	return imageResult(st), nil, nil
}

func (t *toolset) getState(_ context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	st := t.ctrl.Snapshot()
	text := summarize(st)
	if analysis := formatAnalysis(st); analysis != "" {
		text += "\n\n" + analysis
	}
	if st.Error != "" {
		text += "\n\nLast error: " + st.Error
	}
	return textResult(text), nil, nil
}

func (t *toolset) reset(_ context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	if _, err := t.ctrl.Reset(); err != nil {
		return nil, nil, err
	}
	return textResult("Session reset."), nil, nil
}

// toolError prefers the user-facing message recorded in the session.
func toolError(tool string, st studio.State, err error) error {
	log.Warn().Err(err).Str("tool", tool).Msg("Tool call failed")
	if st.Error != "" {
		return errors.New(st.Error)
	}
	return err
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func imageResult(st studio.State) *mcp.CallToolResult {
	if st.Image == nil {
		return textResult(summarize(st))
	}
	return &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.ImageContent{Data: st.Image.Data, MIMEType: st.Image.MIMEType},
		&mcp.TextContent{Text: summarize(st)},
	}}
}

func summarize(st studio.State) string {
	if st.Image == nil {
		return "No image loaded."
	}
	parts := []string{st.Image.MIMEType, fmt.Sprintf("%d bytes", len(st.Image.Data))}
	if st.Image.Name != "" {
		parts = append([]string{st.Image.Name}, parts...)
	}
	if s := st.Image.Metadata.Summary(); s != "" {
		parts = append(parts, s)
	}
	return "Current image: " + strings.Join(parts, ", ")
}

func formatAnalysis(st studio.State) string {
	switch {
	case st.Result != "":
		return st.Kind.Title() + "\n\n" + st.Result
	case len(st.Suggestions) > 0:
		var b strings.Builder
		b.WriteString(st.Kind.Title())
		b.WriteString("\n")
		for i, s := range st.Suggestions {
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, s.Title, s.Description)
		}
		return b.String()
	default:
		return ""
	}
}
