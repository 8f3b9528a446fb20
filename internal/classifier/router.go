package classifier

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Routing thresholds from local document inspection.
const (
	// Fewer characters than this on page one means no usable text layer.
	textThreshold = 50
	// Documents beyond this page count route to the capable tier.
	pageThreshold = 5
)

// Analysis holds locally inspectable document properties. It is computed
// without any reasoning-service call.
type Analysis struct {
	PageCount        int     `json:"page_count"`
	FirstPageTextLen int     `json:"first_page_text_len"`
	IsImagePDF       bool    `json:"is_image_pdf"`
	FileSizeMB       float64 `json:"file_size_mb"`
}

// Decision is the router's model choice with a human-readable reason.
type Decision struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// Router selects the reasoning-service tier for a document. The fast tier is
// a cost-saving path for previously seen senders; every uncertainty routes
// to the capable tier.
type Router struct {
	capable string
	fast    string
	logger  *slog.Logger
}

// NewRouter creates a Router with the two tier model identifiers.
func NewRouter(capable, fast string, logger *slog.Logger) *Router {
	return &Router{
		capable: capable,
		fast:    fast,
		logger:  logger.With("system", "router"),
	}
}

// Analyze inspects the PDF locally: page count and the text layer of the
// first page. A document whose first page carries almost no text is treated
// as an image-only scan.
func (r *Router) Analyze(data []byte) (*Analysis, error) {
	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	textLen := firstPageTextLen(data)

	a := &Analysis{
		PageCount:        pages,
		FirstPageTextLen: textLen,
		IsImagePDF:       textLen < textThreshold,
		FileSizeMB:       float64(len(data)) / (1024 * 1024),
	}

	r.logger.Debug("pdf analyzed",
		"pages", a.PageCount,
		"first_page_text_len", a.FirstPageTextLen,
		"image_pdf", a.IsImagePDF,
		"size_mb", a.FileSizeMB,
	)
	return a, nil
}

// firstPageTextLen extracts the text layer length of page one. Extraction
// failures count as zero text, which fails safe toward the capable tier.
func firstPageTextLen(data []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || reader.NumPage() == 0 {
		return 0
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return 0
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return 0
	}
	return len(text)
}

// Tier maps a tier name to its model identifier.
func (r *Router) Tier(name string) (string, bool) {
	switch name {
	case "capable":
		return r.capable, true
	case "fast":
		return r.fast, true
	}
	return "", false
}

// Route picks the model tier. correspondentKnown must mean the pipeline has
// already produced a status for this sender at least once; an archive
// auto-matched correspondent without that history does not qualify. force
// overrides the routing entirely when non-empty.
func (r *Router) Route(a *Analysis, correspondentKnown bool, force string) Decision {
	var d Decision
	switch {
	case force != "":
		d = Decision{Model: force, Reason: "manual override"}
	case a.IsImagePDF:
		d = Decision{Model: r.capable, Reason: "image-only scan, vision quality required"}
	case a.PageCount > pageThreshold:
		d = Decision{Model: r.capable, Reason: fmt.Sprintf("%d pages exceeds threshold %d", a.PageCount, pageThreshold)}
	case !correspondentKnown:
		d = Decision{Model: r.capable, Reason: "correspondent not previously classified"}
	default:
		d = Decision{Model: r.fast, Reason: "known correspondent, digital pdf, few pages"}
	}

	r.logger.Info("model routed", "model", d.Model, "reason", d.Reason)
	return d
}
