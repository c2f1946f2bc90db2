// Package multipart extracts a single uploaded file from a raw multipart/form-data body.
//
// It handles exactly the one-file-field case the summarize endpoint needs and is not a
// general MIME parser.
package multipart

import (
	"bytes"
	"fmt"
	"mime"
	"path"
	"strings"

	"docsum/types"
)

var (
	crlf       = []byte("\r\n")
	headerEnd  = []byte("\r\n\r\n")
	filenameKV = []byte(`filename="`)
	nameKV     = []byte(`name="`)
)

// ErrNoFilePart is returned when no part carries a filename attribute.
var ErrNoFilePart = fmt.Errorf("%w: no file part", types.ErrMalformedMultipart)

// Boundary returns the boundary parameter of a multipart/form-data content type.
func Boundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// mime rejects some sloppy but usable headers; fall back to a plain split
		if !strings.Contains(strings.ToLower(contentType), "multipart/form-data") {
			return "", fmt.Errorf("%w: content type %q", types.ErrMalformedMultipart, contentType)
		}
		_, b, ok := strings.Cut(contentType, "boundary=")
		b, _, _ = strings.Cut(b, ";")
		b = strings.Trim(strings.TrimSpace(b), `"`)
		if !ok || b == "" {
			return "", fmt.Errorf("%w: missing boundary", types.ErrMalformedMultipart)
		}
		return b, nil
	}
	if mediaType != "multipart/form-data" {
		return "", fmt.Errorf("%w: content type %q", types.ErrMalformedMultipart, mediaType)
	}
	b := params["boundary"]
	if b == "" {
		return "", fmt.Errorf("%w: missing boundary", types.ErrMalformedMultipart)
	}
	return b, nil
}

// Parse returns the first part of body that carries a filename.
// Parts are located by splitting on "--"+boundary only, so payload bytes are never
// scanned for line breaks.
func Parse(body []byte, boundary string) (types.RawUpload, error) {
	if boundary == "" {
		return types.RawUpload{}, fmt.Errorf("%w: missing boundary", types.ErrMalformedMultipart)
	}

	parts := bytes.Split(body, []byte("--"+boundary))
	// parts[0] is the preamble before the first delimiter
	for _, part := range parts[1:] {
		end := bytes.Index(part, headerEnd)
		var headers []byte
		if end == -1 {
			headers = part
		} else {
			headers = part[:end]
		}

		filename, field, ok := fileDisposition(headers)
		if !ok {
			continue
		}
		if end == -1 {
			return types.RawUpload{}, fmt.Errorf("%w: header terminator not found in part %q", types.ErrMalformedMultipart, field)
		}

		payload := part[end+len(headerEnd):]
		if !bytes.HasSuffix(payload, crlf) {
			return types.RawUpload{}, fmt.Errorf("%w: payload of part %q is not terminated", types.ErrMalformedMultipart, field)
		}
		payload = payload[:len(payload)-len(crlf)]

		return types.RawUpload{
			FieldName: field,
			Filename:  filename,
			Data:      payload,
		}, nil
	}

	return types.RawUpload{}, ErrNoFilePart
}

// fileDisposition scans CRLF-separated header lines for a Content-Disposition with a filename.
func fileDisposition(headers []byte) (filename, field string, ok bool) {
	for _, line := range bytes.Split(headers, crlf) {
		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || !strings.EqualFold(string(bytes.TrimSpace(name)), "Content-Disposition") {
			continue
		}
		raw, has := quoted(value, filenameKV)
		if !has {
			continue
		}
		field, _ = quoted(withoutFilename(value), nameKV)
		return baseName(raw), field, true
	}
	return "", "", false
}

// quoted returns the text between key and the next double quote.
func quoted(value, key []byte) (string, bool) {
	i := bytes.Index(value, key)
	if i == -1 {
		return "", false
	}
	rest := value[i+len(key):]
	j := bytes.IndexByte(rest, '"')
	if j == -1 {
		return "", false
	}
	return string(rest[:j]), true
}

// withoutFilename blanks filename="..." so a name="..." lookup cannot match inside it.
func withoutFilename(value []byte) []byte {
	i := bytes.Index(value, filenameKV)
	if i == -1 {
		return value
	}
	out := append([]byte{}, value[:i]...)
	rest := value[i+len(filenameKV):]
	if j := bytes.IndexByte(rest, '"'); j != -1 {
		out = append(out, rest[j+1:]...)
	}
	return out
}

// baseName strips client-side directories (some browsers send full Windows paths).
func baseName(name string) string {
	if name == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}
