package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxUploadSize is the largest accepted file payload (10 MiB).
const MaxUploadSize = 10 << 20

// AllowedExtensions lists the accepted upload extensions, without the dot.
var AllowedExtensions = []string{"pdf", "txt", "doc", "docx"}

var validate = validator.New()

type Validater interface {
	Validate() error
}

// UploadParams carries the upload fields checked before any pipeline stage runs.
// Field order is the check order.
type UploadParams struct {
	Filename  string `validate:"required"`
	Extension string `validate:"oneof=pdf txt doc docx"`
	Size      int    `validate:"gt=0,lte=10485760"`
}

func NewUploadParams(upload RawUpload) *UploadParams {
	return &UploadParams{
		Filename:  upload.Filename,
		Extension: Extension(upload.Filename),
		Size:      len(upload.Data),
	}
}

// Extension returns the lower-cased extension of name without the leading dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func Validate(v Validater) error {
	return v.Validate()
}

// Validate reports the first failing check as ErrInvalidInput.
func (params *UploadParams) Validate() error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, uploadMessage(errs[0]))
}

func uploadMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Filename":
		return "no file selected"
	case "Extension":
		return "invalid file type, please upload PDF, TXT, DOC or DOCX"
	case "Size":
		if fe.Tag() == "gt" {
			return "uploaded file is empty"
		}
		return "file too large (max 10 MiB)"
	}
	return fmt.Sprintf("%s failed on '%s' tag", fe.Field(), fe.Tag())
}
