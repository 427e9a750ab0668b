package ocr

import (
	"context"
	"errors"
)

// ErrNoText means the service answered but could not recover any text from
// the image. Callers surface it as a user warning instead of a generic error.
var ErrNoText = errors.New("no text found in image")

// Engine is the image-to-text / question-answering boundary.
// ExtractText returns the plain text read from the image. Answer asks a single
// short question against previously extracted text. Neither method retries;
// retry policy belongs to the caller.
type Engine interface {
	Name() string
	GetModel() string
	ExtractText(ctx context.Context, image []byte, mime string) (string, error)
	Answer(ctx context.Context, sourceText, question string) (string, error)
}
