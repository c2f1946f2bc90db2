package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput means the upload is missing, empty, disallowed or too large.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedMultipart means the request body could not be parsed as a single-file form.
	ErrMalformedMultipart = errors.New("malformed multipart body")

	// ErrUnsupportedFormat means no loader is registered for the file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailed means the loader produced no text.
	ErrExtractionFailed = errors.New("could not extract text from document")

	// ErrEmptyIndex means retrieval ran before any chunk was embedded.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrGenerationFailed means the language model errored or returned nothing.
	ErrGenerationFailed = errors.New("generation failed")
)

type Stage string

const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageTempFile  Stage = "temp_file"
	StageLoaded    Stage = "loaded"
	StageChunked   Stage = "chunked"
	StageIndexed   Stage = "indexed"
	StageRetrieved Stage = "retrieved"
	StagePrompted  Stage = "prompted"
	StageGenerated Stage = "generated"
	StageResponded Stage = "responded"
)

// StageError records the pipeline stage that was being entered when Err occurred.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage recorded in err, or "" when there is none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
