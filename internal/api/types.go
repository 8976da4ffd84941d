package api

// Book references one remote conversion job by its two server-assigned
// identifiers. Both are opaque strings: the client never derives
// anything from their contents, and only ID is ever used for deletion.
type Book struct {
	ID         string
	BookflowID string
}

// Metadata carries the optional bibliographic fields for book creation.
// Empty fields are sent as empty strings, never omitted; the server's
// own document metadata takes precedence on conflict.
type Metadata struct {
	Title     string
	Author    string
	ISBN      string
	Publisher string
}

// Bookflow ingest steps observed while waiting for server-side parsing.
const (
	StepProcessing       = "processing"
	StepConvert          = "convert"
	StepProcessingFailed = "processing_failed"
)

// Conversion statuses observed on the download descriptor.
const (
	StatusProcessing = "processing"
	StatusOK         = "ok"
	StatusFailed     = "failed"
)

type createBookRequest struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Publisher string `json:"publisher"`
}

type createBookResponse struct {
	Book struct {
		ID        string `json:"id"`
		Bookflows []struct {
			ID string `json:"id"`
		} `json:"bookflows"`
	} `json:"book"`
}

type documentUpload struct {
	Filetype     string `json:"filetype"`
	Filename     string `json:"filename"`
	SkipAnalysis bool   `json:"skip_analysis"`
	File         string `json:"file"`
}

type bookflowResponse struct {
	Bookflow struct {
		Step string `json:"step"`
	} `json:"bookflow"`
}

type convertRequest struct {
	Format  string `json:"format"`
	Version string `json:"version"`
}

type convertResponse struct {
	DownloadURL string `json:"download_url"`
}

type conversionStatusResponse struct {
	Status string `json:"status"`
}
