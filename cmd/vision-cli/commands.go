package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/spf13/cobra"
)

var (
	promptFlag      string
	instructionFlag string
	generateOutFlag string
	editOutFlag     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create an image from a text prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := promptFlag
		if prompt == "" {
			prompt = cli.PromptForText("Prompt")
		}
		return current.run(cmd.OutOrStdout(), "generate", generateOutFlag, func(a *app) (studio.State, error) {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.ctrl.Generate(ctx, prompt)
		})
	},
}

var describeCmd = analysisCommand(studio.AnalysisDescribe, "describe", "Describe an image in detail")
var suggestCmd = analysisCommand(studio.AnalysisSuggest, "suggest", "Suggest creative edits for an image")
var storyCmd = analysisCommand(studio.AnalysisStory, "story", "Write a short story inspired by an image")

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit an image with a plain-language instruction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.loadInput(); err != nil {
			return err
		}
		instruction := instructionFlag
		if instruction == "" {
			instruction = cli.PromptForText("Edit instruction")
		}
		return current.run(cmd.OutOrStdout(), "edit", editOutFlag, func(a *app) (studio.State, error) {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.ctrl.ApplyEdit(ctx, instruction)
		})
	},
}

func init() {
	generateCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Text prompt (asked interactively when omitted)")
	generateCmd.Flags().StringVarP(&generateOutFlag, "out", "o", "generated", "Output file; the extension is added from the media type")

	editCmd.Flags().StringVar(&instructionFlag, "instruction", "", "Edit instruction (asked interactively when omitted)")
	editCmd.Flags().StringVarP(&editOutFlag, "out", "o", "edited", "Output file; the extension is added from the media type")
}

func analysisCommand(kind studio.AnalysisKind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.loadInput(); err != nil {
				return err
			}
			return current.run(cmd.OutOrStdout(), use, "", func(a *app) (studio.State, error) {
				ctx, cancel := signalContext(cmd.Context())
				defer cancel()
				return a.ctrl.Analyze(ctx, kind)
			})
		},
	}
}

// run executes one controller operation and prints its outcome. Images are
// saved to outPath.
func (a *app) run(out io.Writer, name, outPath string, op func(*app) (studio.State, error)) error {
	start := time.Now()
	fmt.Fprintf(os.Stderr, "Working on %s...\n", name)

	st, err := op(a)
	if err != nil {
		if st.Error != "" {
			return errors.New(st.Error)
		}
		return err
	}

	fmt.Fprintf(os.Stderr, "Done in %s\n", cli.FormatDurationShort(time.Since(start)))
	return printResult(out, outPath, st)
}

// printResult writes text results to out. When outPath is set the current
// image is saved there.
func printResult(out io.Writer, outPath string, st studio.State) error {
	switch {
	case st.Result != "":
		fmt.Fprintf(out, "%s\n\n%s\n", st.Kind.Title(), st.Result)
	case len(st.Suggestions) > 0:
		fmt.Fprintf(out, "%s\n\n", st.Kind.Title())
		writeSuggestions(out, st.Suggestions)
	case outPath != "" && st.Image != nil:
		return saveImage(out, outPath, st.Image)
	}
	return nil
}

func saveImage(out io.Writer, path string, img *studio.Image) error {
	path, err := cli.WriteImage(path, img.Image)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s (%s, %d bytes)\n", path, img.MIMEType, len(img.Data))
	return nil
}

func writeSuggestions(out io.Writer, suggestions []chat.EditSuggestion) {
	for i, s := range suggestions {
		fmt.Fprintf(out, "%d. %s\n   %s\n", i+1, s.Title, strings.TrimSpace(s.Description))
	}
}
