package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"docsum/types"
)

const (
	documentXML = "word/document.xml"
	// minRun is the shortest printable run kept by the legacy .doc heuristic.
	minRun = 4
)

var zipMagic = []byte("PK\x03\x04")

// WordLoader reads .docx files and legacy .doc files. A .doc that is really an
// OOXML package is read as .docx.
type WordLoader struct{}

func (WordLoader) Load(path string) ([]types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word file: %w", err)
	}

	var text string
	if bytes.HasPrefix(data, zipMagic) {
		text, err = docxText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
		}
	} else {
		text = legacyDocText(data)
	}

	return []types.Document{{Text: text}}, nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name != documentXML {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return paragraphs(rc)
	}
	return "", errors.New("missing " + documentXML)
}

// paragraphs walks WordprocessingML and returns the text of every w:p on its own line.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// legacyDocText recovers readable text from a binary .doc by collecting printable runs,
// read both as UTF-16LE and as 8-bit text. The longer reading wins.
func legacyDocText(data []byte) string {
	wide := printableRuns(decodeUTF16LE(data), isWideTextRune)
	narrow := printableRuns([]rune(string(latin1ToUTF8(data))), isDocTextRune)
	if len(wide) >= len(narrow) {
		return wide
	}
	return narrow
}

func decodeUTF16LE(data []byte) []rune {
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return utf16.Decode(units)
}

func latin1ToUTF8(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		out = append(out, string(rune(c))...)
	}
	return out
}

func printableRuns(rs []rune, keep func(rune) bool) string {
	var (
		out []string
		run []rune
	)
	flush := func() {
		if text := strings.TrimSpace(string(run)); utf8.RuneCountInString(text) >= minRun {
			out = append(out, text)
		}
		run = run[:0]
	}
	for _, r := range rs {
		if r == '\r' || r == '\n' {
			flush()
			continue
		}
		if keep(r) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(out, "\n")
}

func isDocTextRune(r rune) bool {
	if r == '\t' || r == ' ' {
		return true
	}
	if r < 0x20 || r == unicode.ReplacementChar || (r >= 0x7f && r < 0xa0) {
		return false
	}
	return unicode.IsPrint(r)
}

// isWideTextRune limits the UTF-16 reading to Latin, Greek and Cyrillic so that pairs of
// 8-bit characters do not decode as CJK noise.
func isWideTextRune(r rune) bool {
	if r >= 0x250 && (r < 0x370 || r > 0x4ff) && (r < 0x2010 || r > 0x2027) {
		return false
	}
	return isDocTextRune(r)
}
