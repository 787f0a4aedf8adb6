package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/filehandler"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickCanceled is returned when the user closes the file dialog.
var ErrPickCanceled = errors.New("file selection canceled")

// PromptForText asks for one line of input on stdin. Returns "" on EOF.
func PromptForText(label string) string {
	return promptFrom(os.Stdin, os.Stdout, label)
}

func promptFrom(in io.Reader, out io.Writer, label string) string {
	fmt.Fprintf(out, "%s: ", label)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}
	return strings.TrimSpace(input)
}

// PickImageFile opens a native file dialog filtered to supported images.
func PickImageFile() (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title("Select an image"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: filehandler.PickerPatterns(),
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickCanceled
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}
	log.Debug().Str("path", path).Msg("Image selected in file picker")
	return path, nil
}
