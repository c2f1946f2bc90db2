package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsum/types"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// buildPDF writes a minimal PDF with one line of Helvetica text per page.
func buildPDF(pages ...string) []byte {
	streams := make([]string, len(pages))
	for i, text := range pages {
		if text != "" {
			streams[i] = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
	}
	return buildPDFStreams(streams...)
}

// buildPDFStreams writes a minimal letter-size PDF with one page per content stream.
func buildPDFStreams(pages ...string) []byte {
	var objects []string
	kids := make([]string, len(pages))
	// 1 catalog, 2 pages, 3 font, then page/content pairs
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, content := range pages {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	if body != "" {
		w, err = zw.Create(documentXML)
		require.NoError(t, err)
		_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRegistry_Dispatch(t *testing.T) {
	r := DefaultRegistry(Options{}, nil)
	assert.Equal(t, []string{"doc", "docx", "pdf", "txt"}, r.Extensions())

	path := writeFile(t, "NOTES.TXT", []byte("upper case extension"))
	docs, err := r.Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "upper case extension", docs[0].Text)
	assert.Equal(t, "NOTES.TXT", docs[0].Metadata[types.MetaSource])
	assert.Equal(t, "txt", docs[0].Metadata[types.MetaFormat])
}

func TestRegistry_Unsupported(t *testing.T) {
	r := DefaultRegistry(Options{}, nil)
	for _, name := range []string{"report.exe", "noext"} {
		_, err := r.Load(writeFile(t, name, []byte("data")))
		assert.True(t, errors.Is(err, types.ErrUnsupportedFormat), name)
	}
}

func TestRegistry_BlankResult(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(".md", LoaderFunc(func(string) ([]types.Document, error) {
		return []types.Document{{Text: "  \n\t"}, {Text: ""}}, nil
	}))
	_, err := r.Load("notes.md")
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))

	_, err = DefaultRegistry(Options{}, nil).Load(writeFile(t, "empty.txt", []byte(" \r\n ")))
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}

func TestRegistry_PropagatesLoaderError(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")
	r.Register("bin", LoaderFunc(func(string) ([]types.Document, error) { return nil, boom }))
	_, err := r.Load("x.bin")
	assert.ErrorIs(t, err, boom)
}

func TestTextLoader(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("line one\r\nline two\rbad \xff byte")...)
	docs, err := TextLoader{}.Load(writeFile(t, "a.txt", data))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "line one\nline two\nbad � byte", docs[0].Text)
}

func TestWordLoader_Docx(t *testing.T) {
	body := `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> Word</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>para &amp; more</w:t></w:r></w:p>`

	docs, err := DefaultRegistry(Options{}, nil).Load(writeFile(t, "a.docx", buildDocx(t, body)))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Hello Word\nSecond\tpara & more\n", docs[0].Text)
	assert.Equal(t, "docx", docs[0].Metadata[types.MetaFormat])
}

func TestWordLoader_DocThatIsZip(t *testing.T) {
	body := `<w:p><w:r><w:t>Packaged as doc</w:t></w:r></w:p>`
	docs, err := WordLoader{}.Load(writeFile(t, "a.doc", buildDocx(t, body)))
	require.NoError(t, err)
	assert.Equal(t, "Packaged as doc\n", docs[0].Text)
}

func TestWordLoader_DocxWithoutDocument(t *testing.T) {
	_, err := WordLoader{}.Load(writeFile(t, "a.docx", buildDocx(t, "")))
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}

func TestWordLoader_LegacyUTF16(t *testing.T) {
	var data []byte
	data = append(data, 0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x00)
	for _, u := range utf16.Encode([]rune("Legacy document text\rsecond paragraph")) {
		data = append(data, byte(u), byte(u>>8))
	}
	data = append(data, 0x00, 0x00, 0x01, 0x02)

	docs, err := WordLoader{}.Load(writeFile(t, "a.doc", data))
	require.NoError(t, err)
	assert.Equal(t, "Legacy document text\nsecond paragraph", docs[0].Text)
}

func TestWordLoader_Legacy8Bit(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0x00, 0x01}, []byte("Plain eight bit text\x00\x00x\x00More text here")...)

	docs, err := WordLoader{}.Load(writeFile(t, "a.doc", data))
	require.NoError(t, err)
	assert.Contains(t, docs[0].Text, "Plain eight bit text")
	assert.Contains(t, docs[0].Text, "More text here")
}

func TestPDFLoader_Pages(t *testing.T) {
	path := writeFile(t, "a.pdf", buildPDF("Hello PDF world", "", "Third page"))

	docs, err := DefaultRegistry(Options{}, nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Text, "Hello PDF world")
	assert.Equal(t, "1", docs[0].Metadata[types.MetaPage])
	assert.Contains(t, docs[1].Text, "Third page")
	assert.Equal(t, "3", docs[1].Metadata[types.MetaPage])
	assert.Equal(t, "3", docs[1].Metadata[types.MetaPages])
	assert.Equal(t, "pdf", docs[1].Metadata[types.MetaFormat])
}

func TestPDFLoader_NotAPDF(t *testing.T) {
	_, err := NewPDFLoader(0, 0, nil).Load(writeFile(t, "a.pdf", []byte("plain text, not a pdf")))
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}

func TestPDFLoader_NoText(t *testing.T) {
	_, err := DefaultRegistry(Options{}, nil).Load(writeFile(t, "a.pdf", buildPDF("", "")))
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}

func TestPDFLoader_Lines(t *testing.T) {
	path := writeFile(t, "a.pdf", buildPDFStreams(
		"BT /F1 12 Tf 72 720 Td (first line) Tj 0 -14 Td (second line) Tj ET",
	))

	docs, err := NewPDFLoader(0, 0, nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "first line\nsecond line", docs[0].Text)
}

func TestPDFLoader_WordGap(t *testing.T) {
	path := writeFile(t, "a.pdf", buildPDFStreams(
		"BT /F1 12 Tf 72 720 Td (left) Tj 100 0 Td (right) Tj ET",
	))

	docs, err := NewPDFLoader(0, 0, nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "left right", docs[0].Text)
}

func TestPDFLoader_CropMargins(t *testing.T) {
	page := "BT /F1 12 Tf 72 770 Td (HEADERLINE) Tj ET " +
		"BT /F1 12 Tf 72 400 Td (Body text here) Tj ET " +
		"BT /F1 12 Tf 72 20 Td (FOOTERLINE) Tj ET"
	path := writeFile(t, "a.pdf", buildPDFStreams(page))

	docs, err := DefaultRegistry(Options{CropTop: 60, CropBottom: 60}, nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Body text here", docs[0].Text)

	docs, err = DefaultRegistry(Options{}, nil).Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "HEADERLINE\nBody text here\nFOOTERLINE", docs[0].Text)
}

func TestPDFLoader_CropEverything(t *testing.T) {
	path := writeFile(t, "a.pdf", buildPDFStreams("BT /F1 12 Tf 72 770 Td (HEADERLINE) Tj ET"))

	_, err := DefaultRegistry(Options{CropTop: 60}, nil).Load(path)
	assert.True(t, errors.Is(err, types.ErrExtractionFailed))
}
