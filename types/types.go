package types

// Metadata keys set by the loaders.
const (
	MetaSource = "source"
	MetaFormat = "format"
	MetaPage   = "page"
	MetaPages  = "pages"
)

// RawUpload is the file part extracted from a multipart body.
type RawUpload struct {
	FieldName string
	Filename  string
	Data      []byte
}

// Document is one unit of extracted text (a page for PDF, the whole file otherwise).
type Document struct {
	Text     string
	Metadata map[string]string
}

type Chunk struct {
	Text     string
	Offset   int // rune offset inside the document
	DocIndex int // position of the source Document
	Seq      int // insertion order across all documents
}

type SummaryResponse struct {
	Summary  string `json:"summary"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
