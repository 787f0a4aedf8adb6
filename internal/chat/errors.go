package chat

import (
	"errors"
	"fmt"
)

// Operation names one orchestration call. The value is used as a log field,
// a metric dimension, and a span name.
type Operation string

const (
	OpGenerateImage Operation = "generate_image"
	OpDescribeImage Operation = "describe_image"
	OpSuggestEdits  Operation = "suggest_edits"
	OpGenerateStory Operation = "generate_story"
	OpEditImage     Operation = "edit_image"
)

// User-facing failure messages, one per operation.
const (
	MsgGenerateFailed = "Failed to generate image. Please check your prompt or API key."
	MsgDescribeFailed = "Failed to get image description."
	MsgSuggestFailed  = "Failed to get edit suggestions."
	MsgStoryFailed    = "Failed to generate a story from the image."
	MsgEditFailed     = "Failed to apply the edit to the image."
)

// Message returns the user-facing failure message for op.
func (op Operation) Message() string {
	switch op {
	case OpGenerateImage:
		return MsgGenerateFailed
	case OpDescribeImage:
		return MsgDescribeFailed
	case OpSuggestEdits:
		return MsgSuggestFailed
	case OpGenerateStory:
		return MsgStoryFailed
	case OpEditImage:
		return MsgEditFailed
	default:
		return "The request failed."
	}
}

// ErrEmptyResponse is the cause recorded when the model returns nothing usable.
var ErrEmptyResponse = errors.New("model returned no usable content")

// OperationError is returned by every Service operation on failure. Message is
// the only text meant for users; Err keeps the cause for logs.
type OperationError struct {
	Op      Operation
	Message string
	Err     error
}

func newOperationError(op Operation, err error) *OperationError {
	return &OperationError{Op: op, Message: op.Message(), Err: err}
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// UserMessage returns the human-readable message for err. Operation failures
// yield their fixed message; any other error yields its own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}
