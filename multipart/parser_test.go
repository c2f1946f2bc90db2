package multipart

import (
	"bytes"
	"errors"
	stdmultipart "mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsum/types"
)

func body(boundary string, parts ...string) []byte {
	var b bytes.Buffer
	for _, p := range parts {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.Bytes()
}

func TestParse_SingleFile(t *testing.T) {
	raw := body("XYZ",
		"Content-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\nContent-Type: text/plain\r\n\r\nhello",
	)

	up, err := Parse(raw, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", up.Filename)
	assert.Equal(t, "file", up.FieldName)
	assert.Equal(t, []byte("hello"), up.Data)
}

func TestParse_BinaryPayloadWithCRLF(t *testing.T) {
	payload := []byte{0x00, 0xff, '\r', '\n', '\r', '\n', 'x', '\r', '\n', 0x10, '\r', '\n'}
	raw := body("b0undary",
		"Content-Disposition: form-data; name=\"file\"; filename=\"blob.pdf\"\r\n\r\n"+string(payload),
	)

	up, err := Parse(raw, "b0undary")
	require.NoError(t, err)
	assert.Equal(t, payload, up.Data)
}

func TestParse_SkipsNonFileFields(t *testing.T) {
	raw := body("XYZ",
		"Content-Disposition: form-data; name=\"title\"\r\n\r\nmy notes",
		"content-disposition: form-data; name=\"upload\"; filename=\"notes.docx\"\r\n\r\nDOCX",
	)

	up, err := Parse(raw, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "notes.docx", up.Filename)
	assert.Equal(t, "upload", up.FieldName)
	assert.Equal(t, []byte("DOCX"), up.Data)
}

func TestParse_StripsClientPath(t *testing.T) {
	raw := body("XYZ",
		"Content-Disposition: form-data; name=\"file\"; filename=\"C:\\Users\\me\\report.pdf\"\r\n\r\n%PDF",
	)

	up, err := Parse(raw, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", up.Filename)
}

func TestParse_EmptyFilename(t *testing.T) {
	raw := body("XYZ", "Content-Disposition: form-data; name=\"file\"; filename=\"\"\r\n\r\n")

	up, err := Parse(raw, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "", up.Filename)
	assert.Empty(t, up.Data)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		boundary string
		noFile   bool
	}{
		{"no boundary", body("XYZ", "Content-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n\r\nhi"), "", false},
		{"no filename", body("XYZ", "Content-Disposition: form-data; name=\"file\"\r\n\r\nhi"), "XYZ", true},
		{"wrong boundary", body("XYZ", "Content-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n\r\nhi"), "ABC", true},
		{"missing header terminator", []byte("--XYZ\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\nhi"), "XYZ", false},
		{"missing trailing crlf", []byte("--XYZ\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n\r\nhi--XYZ--"), "XYZ", false},
		{"empty body", nil, "XYZ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body, tt.boundary)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrMalformedMultipart))
			assert.Equal(t, tt.noFile, errors.Is(err, ErrNoFilePart))
		})
	}
}

func TestParse_StandardWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := stdmultipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("lang", "fr"))
	fw, err := w.CreateFormFile("file", "cours.txt")
	require.NoError(t, err)
	content := []byte("ligne 1\r\nligne 2\r\n")
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	boundary, err := Boundary(w.FormDataContentType())
	require.NoError(t, err)

	up, err := Parse(buf.Bytes(), boundary)
	require.NoError(t, err)
	assert.Equal(t, "cours.txt", up.Filename)
	assert.Equal(t, content, up.Data)
}

func TestBoundary(t *testing.T) {
	b, err := Boundary(`multipart/form-data; boundary=XYZ`)
	require.NoError(t, err)
	assert.Equal(t, "XYZ", b)

	b, err = Boundary(`multipart/form-data; boundary="quoted-value"`)
	require.NoError(t, err)
	assert.Equal(t, "quoted-value", b)

	for _, ct := range []string{"", "application/json", "multipart/form-data", "multipart/form-data; charset=utf-8"} {
		_, err := Boundary(ct)
		assert.True(t, errors.Is(err, types.ErrMalformedMultipart), ct)
	}
}
