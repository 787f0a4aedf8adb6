package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Commands rejected by the controller return one of these. They are never
// stored as the session error.
var (
	ErrBusy             = errors.New("another operation is in progress")
	ErrNoImage          = errors.New("no image loaded")
	ErrEmptyInstruction = errors.New("edit instruction is empty")
	ErrUnknownAnalysis  = errors.New("unknown analysis kind")
	ErrRateLimited      = errors.New("too many requests")
)

// User-facing messages set by the controller itself.
const (
	MsgEmptyPrompt  = "Please enter a prompt to generate an image."
	MsgUploadFailed = "Failed to read the uploaded file."
)

// ErrEmptyPrompt is returned by Generate for a blank prompt. Unlike the other
// rejections it is also recorded as the session error.
var ErrEmptyPrompt = errors.New(MsgEmptyPrompt)

// Orchestrator is the remote capability used by a Controller.
// *chat.Service satisfies it.
type Orchestrator interface {
	GenerateImage(ctx context.Context, prompt string) (chat.Image, error)
	DescribeImage(ctx context.Context, img chat.Image) (string, error)
	SuggestEdits(ctx context.Context, img chat.Image) ([]chat.EditSuggestion, error)
	GenerateStory(ctx context.Context, img chat.Image) (string, error)
	EditImage(ctx context.Context, img chat.Image, instruction string) (chat.Image, error)
}

// Controller owns one session State. All methods are safe for concurrent use.
// At most one orchestration call is in flight; commands issued meanwhile are
// rejected with ErrBusy and never reach the Orchestrator.
type Controller struct {
	mu     sync.Mutex
	state  State
	svc    Orchestrator
	upload filehandler.Options
	admit  func() error

	readImage func(name, declaredType string, data []byte, opts filehandler.Options) (*filehandler.LoadedImage, error)
	loadFile  func(path string, opts filehandler.Options) (*filehandler.LoadedImage, error)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithUploadOptions sets size and dimension limits for uploaded images.
func WithUploadOptions(opts filehandler.Options) ControllerOption {
	return func(c *Controller) {
		c.upload = opts
	}
}

// WithAdmission installs a check run after a command passes the phase gate
// and before the Orchestrator is called. A non-nil error rejects the command
// without changing the state. Uploads and local commands are not subject to it.
func WithAdmission(admit func() error) ControllerOption {
	return func(c *Controller) {
		c.admit = admit
	}
}

// NewController creates a Controller in the initial state.
func NewController(svc Orchestrator, opts ...ControllerOption) *Controller {
	c := &Controller{
		svc:       svc,
		state:     NewState(),
		readImage: filehandler.ReadImage,
		loadFile:  filehandler.LoadImageFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// dispatch applies e under the lock and returns the new state.
func (c *Controller) dispatch(e Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchLocked(e)
}

func (c *Controller) dispatchLocked(e Event) State {
	c.state = Reduce(c.state, e)
	log.Debug().
		Str("event", fmt.Sprintf("%T", e)).
		Str("phase", string(c.state.Phase)).
		Bool("has_image", c.state.Image != nil).
		Bool("has_error", c.state.Error != "").
		Msg("Session state updated")
	return c.state.clone()
}

// begin atomically checks the phase gate and enters phase. When needImage is
// set it also requires a current image, which it returns.
func (c *Controller) begin(phase Phase, kind AnalysisKind, needImage bool) (Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		log.Debug().
			Str("phase", string(c.state.Phase)).
			Str("requested", string(phase)).
			Msg("Rejected command while busy")
		return Image{}, ErrBusy
	}

	var img Image
	if needImage {
		if c.state.Image == nil {
			return Image{}, ErrNoImage
		}
		img = *c.state.Image
	}

	if c.admit != nil {
		if err := c.admit(); err != nil {
			log.Debug().Err(err).Str("requested", string(phase)).Msg("Command not admitted")
			return Image{}, err
		}
	}

	c.dispatchLocked(OperationStarted{Phase: phase, Kind: kind})
	return img, nil
}

// Generate creates a new image from prompt. A blank prompt records an error
// without contacting the Orchestrator. Operation failures are recorded in the
// state and also returned.
func (c *Controller) Generate(ctx context.Context, prompt string) (State, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state.Busy() {
			return c.state.clone(), ErrBusy
		}
		return c.dispatchLocked(Failed{Message: MsgEmptyPrompt}), ErrEmptyPrompt
	}

	if _, err := c.begin(PhaseGenerating, AnalysisNone, false); err != nil {
		return c.Snapshot(), err
	}

	img, err := c.svc.GenerateImage(ctx, prompt)
	if err != nil {
		return c.dispatch(Failed{Message: chat.UserMessage(err)}), err
	}

	return c.dispatch(ImageSet{Image: displayImage(img, "")}), nil
}

// Upload validates user-supplied bytes and makes them the current image. On
// failure the session error is set and the current image is kept. Decoding
// runs without holding the session lock.
func (c *Controller) Upload(name, declaredType string, data []byte) (State, error) {
	if st := c.Snapshot(); st.Busy() {
		return st, ErrBusy
	}

	loaded, err := c.readImage(name, declaredType, data, c.upload)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Rejected uploaded file")
		return c.commitUpload(nil, fmt.Errorf("read upload: %w", err))
	}
	return c.commitUpload(loaded, nil)
}

// UploadFile loads an image from disk with the same rules as Upload.
func (c *Controller) UploadFile(path string) (State, error) {
	if st := c.Snapshot(); st.Busy() {
		return st, ErrBusy
	}

	loaded, err := c.loadFile(path, c.upload)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Rejected image file")
		return c.commitUpload(nil, fmt.Errorf("load image file: %w", err))
	}
	return c.commitUpload(loaded, nil)
}

// commitUpload records the outcome of an image read. An operation may have
// started while the read ran, so the phase gate is checked again.
func (c *Controller) commitUpload(loaded *filehandler.LoadedImage, readErr error) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return c.state.clone(), ErrBusy
	}
	if readErr != nil {
		return c.dispatchLocked(Failed{Message: MsgUploadFailed}), readErr
	}
	return c.dispatchLocked(ImageSet{Image: loadedImage(loaded)}), nil
}

// Analyze runs one analysis of the current image.
func (c *Controller) Analyze(ctx context.Context, kind AnalysisKind) (State, error) {
	if _, err := ParseAnalysisKind(string(kind)); err != nil {
		return c.Snapshot(), err
	}

	img, err := c.begin(PhaseAnalyzing, kind, true)
	if err != nil {
		return c.Snapshot(), err
	}

	switch kind {
	case AnalysisSuggest:
		suggestions, err := c.svc.SuggestEdits(ctx, img.Image)
		if err != nil {
			return c.dispatch(Failed{Message: chat.UserMessage(err)}), err
		}
		return c.dispatch(SuggestionsCompleted{Suggestions: suggestions}), nil

	case AnalysisStory:
		text, err := c.svc.GenerateStory(ctx, img.Image)
		if err != nil {
			return c.dispatch(Failed{Message: chat.UserMessage(err)}), err
		}
		return c.dispatch(AnalysisCompleted{Text: text}), nil

	default:
		text, err := c.svc.DescribeImage(ctx, img.Image)
		if err != nil {
			return c.dispatch(Failed{Message: chat.UserMessage(err)}), err
		}
		return c.dispatch(AnalysisCompleted{Text: text}), nil
	}
}

// ApplyEdit replaces the current image with an edited version. A blank
// instruction is rejected without changing state. On failure the current
// image is kept.
func (c *Controller) ApplyEdit(ctx context.Context, instruction string) (State, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return c.Snapshot(), ErrEmptyInstruction
	}

	img, err := c.begin(PhaseEditing, AnalysisNone, true)
	if err != nil {
		return c.Snapshot(), err
	}

	edited, err := c.svc.EditImage(ctx, img.Image, instruction)
	if err != nil {
		return c.dispatch(Failed{Message: chat.UserMessage(err)}), err
	}

	return c.dispatch(ImageSet{Image: displayImage(edited, img.Name)}), nil
}

// DismissError clears the session error. It is allowed in any phase.
func (c *Controller) DismissError() State {
	return c.dispatch(ErrorDismissed{})
}

// ClearAnalysis closes the result card.
func (c *Controller) ClearAnalysis() (State, error) {
	return c.idleOnly(AnalysisCleared{})
}

// Reset returns the session to its initial state.
func (c *Controller) Reset() (State, error) {
	return c.idleOnly(ResetRequested{})
}

func (c *Controller) idleOnly(e Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return c.state.clone(), ErrBusy
	}
	return c.dispatchLocked(e), nil
}

// displayImage wraps a model output image, adding dimensions when decodable.
func displayImage(img chat.Image, name string) Image {
	out := Image{Image: img, Name: name}
	if w, h, ok := filehandler.ProbeDimensions(img.Data); ok {
		out.Metadata = &filehandler.ImageMetadata{Width: w, Height: h}
	}
	return out
}

func loadedImage(l *filehandler.LoadedImage) Image {
	return Image{
		Image:    chat.Image{Data: l.Data, MIMEType: l.MIMEType},
		Name:     l.Name,
		Metadata: l.Metadata,
	}
}
