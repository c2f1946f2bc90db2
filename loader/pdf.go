package loader

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"docsum/types"
)

// letterHeight is used when a page carries no usable MediaBox.
const letterHeight = 792

// PDFLoader yields one Document per page.
type PDFLoader struct {
	cropTop    float64
	cropBottom float64
	logger     *slog.Logger
}

func NewPDFLoader(cropTop, cropBottom float64, logger *slog.Logger) *PDFLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFLoader{
		cropTop:    cropTop,
		cropBottom: cropBottom,
		logger:     logger,
	}
}

func (l *PDFLoader) Load(path string) ([]types.Document, error) {
	dims, err := pageDims(path)
	if err != nil {
		l.logger.Debug("pdfcpu page dimensions failed", "err", err)
	}

	pages, err := l.readPages(path, dims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}

	total := len(pages)
	if len(dims) > 0 {
		total = len(dims)
	}

	docs := make([]types.Document, 0, len(pages))
	for i, text := range pages {
		docs = append(docs, types.Document{
			Text: text,
			Metadata: map[string]string{
				types.MetaFormat: "pdf",
				types.MetaPage:   strconv.Itoa(i + 1),
				types.MetaPages:  strconv.Itoa(total),
			},
		})
	}
	return docs, nil
}

// readPages returns the text of every page, "" for pages without content.
func (l *PDFLoader) readPages(path string, dims []pdfDim) (pages []string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		bottom, top, ok := mediaBox(p)
		if !ok {
			bottom, top = 0, letterHeight
			if i <= len(dims) && dims[i-1].Height > 0 {
				top = dims[i-1].Height
			}
		}
		pages = append(pages, pageText(p.Content().Text, bottom+l.cropBottom, top-l.cropTop))
	}
	return pages, nil
}

// mediaBox returns the lower and upper y of the page box, following inherited values.
func mediaBox(p pdf.Page) (float64, float64, bool) {
	v := p.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			lo, hi := box.Index(1).Float64(), box.Index(3).Float64()
			if hi > lo {
				return lo, hi, true
			}
		}
		v = v.Key("Parent")
	}
	return 0, 0, false
}

// pageText rebuilds lines from positioned glyphs in content order. Glyphs whose
// baseline lies outside [lo, hi] are dropped, so page headers and footers can be cut
// by margin. A horizontal gap between glyphs becomes a space, a baseline change a newline.
func pageText(glyphs []pdf.Text, lo, hi float64) string {
	var (
		lines   []string
		line    strings.Builder
		lineY   float64
		prev    *pdf.Text
		pending bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
		prev = nil
		pending = false
	}
	space := func() {
		if s := line.String(); s != "" && !strings.HasSuffix(s, " ") {
			line.WriteByte(' ')
		}
	}

	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "\n" {
			// end of a TJ array
			pending = prev != nil
			continue
		}
		if g.Y < lo || g.Y > hi {
			continue
		}
		if prev != nil && math.Abs(g.Y-lineY) > max(g.FontSize/2, 1) {
			flush()
		}
		if prev == nil {
			lineY = g.Y
		} else if pending || g.X-(prev.X+prev.W) > max(g.FontSize/5, 1) {
			space()
		}
		pending = false
		line.WriteString(g.S)
		prev = g
	}
	flush()
	return strings.Join(lines, "\n")
}
