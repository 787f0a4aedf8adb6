package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  generate <prompt>     create a new image
  open <path>           load an image file
  pick                  choose an image with the file dialog
  describe | suggest | story
                        analyze the current image
  edit <instruction>    edit the current image
  use <n>               apply suggestion n as an edit
  save <path>           write the current image to disk
  clear                 close the current analysis
  reset                 start over
  state                 show the session state
  help                  show this help
  quit                  exit`

// errQuit ends the interactive loop.
var errQuit = errors.New("quit")

// repl drives one Controller from line-oriented commands.
type repl struct {
	ctrl *studio.Controller
	out  io.Writer
	pick func() (string, error)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	r := &repl{ctrl: current.ctrl, out: cmd.OutOrStdout(), pick: cli.PickImageFile}
	if imageFlag != "" || pickFlag {
		if err := current.loadInput(); err != nil {
			return err
		}
	}

	fmt.Fprintln(r.out, "AI Vision Studio. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		ctx, cancel := signalContext(cmd.Context())
		err := r.exec(ctx, scanner.Text())
		cancel()
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	}
}

// parseLine splits an input line into a lowercase verb and the rest.
func parseLine(line string) (verb, arg string) {
	line = strings.TrimSpace(line)
	verb, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}

// exec runs one command line. Operation failures are returned as errors
// carrying the user-facing message.
func (r *repl) exec(ctx context.Context, line string) error {
	verb, arg := parseLine(line)

	var (
		st  studio.State
		err error
	)
	switch verb {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "quit", "exit":
		return errQuit
	case "state":
		r.printState(r.ctrl.Snapshot())
		return nil
	case "generate":
		st, err = r.ctrl.Generate(ctx, arg)
	case "open":
		if arg == "" {
			return errors.New("usage: open <path>")
		}
		st, err = r.ctrl.UploadFile(arg)
	case "pick":
		path, perr := r.pick()
		if errors.Is(perr, cli.ErrPickCanceled) {
			return nil
		}
		if perr != nil {
			return perr
		}
		st, err = r.ctrl.UploadFile(path)
	case "describe", "suggest", "story":
		st, err = r.ctrl.Analyze(ctx, studio.AnalysisKind(verb))
	case "edit":
		st, err = r.ctrl.ApplyEdit(ctx, arg)
	case "use":
		instruction, uerr := suggestionAt(r.ctrl.Snapshot(), arg)
		if uerr != nil {
			return uerr
		}
		st, err = r.ctrl.ApplyEdit(ctx, instruction)
	case "save":
		snap := r.ctrl.Snapshot()
		if snap.Image == nil {
			return studio.ErrNoImage
		}
		if arg == "" {
			return errors.New("usage: save <path>")
		}
		return saveImage(r.out, arg, snap.Image)
	case "clear":
		st, err = r.ctrl.ClearAnalysis()
	case "reset":
		st, err = r.ctrl.Reset()
	default:
		return fmt.Errorf("unknown command %q (type 'help')", verb)
	}

	if err != nil {
		if st.Error != "" {
			msg := st.Error
			r.ctrl.DismissError()
			return errors.New(msg)
		}
		return err
	}
	r.printState(st)
	return nil
}

// suggestionAt returns the description of the 1-based suggestion n.
func suggestionAt(st studio.State, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", errors.New("usage: use <n>")
	}
	if n < 1 || n > len(st.Suggestions) {
		return "", fmt.Errorf("no suggestion %d; run 'suggest' first", n)
	}
	return st.Suggestions[n-1].Description, nil
}

func (r *repl) printState(st studio.State) {
	if st.Image == nil {
		fmt.Fprintln(r.out, "No image loaded.")
		return
	}
	desc := st.Image.MIMEType
	if st.Image.Name != "" {
		desc = st.Image.Name + ", " + desc
	}
	if m := st.Image.Metadata; m != nil {
		if s := m.Summary(); s != "" {
			desc += ", " + s
		}
	}
	fmt.Fprintf(r.out, "Image: %s (%d bytes)\n", desc, len(st.Image.Data))

	switch {
	case st.Result != "":
		fmt.Fprintf(r.out, "\n%s\n\n%s\n", st.Kind.Title(), st.Result)
	case len(st.Suggestions) > 0:
		fmt.Fprintf(r.out, "\n%s\n\n", st.Kind.Title())
		writeSuggestions(r.out, st.Suggestions)
	}
}
