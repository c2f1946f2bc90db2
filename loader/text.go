package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"docsum/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextLoader reads a file as UTF-8. Invalid sequences become U+FFFD.
type TextLoader struct{}

func (TextLoader) Load(path string) ([]types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	return []types.Document{{
		Text:     decodeText(data),
		Metadata: map[string]string{types.MetaFormat: "txt"},
	}}, nil
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
