package translator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"
)

// Output filenames within the task's output directory.
const (
	monoFilename = "translated.pdf"
	dualFilename = "dual.pdf"
)

// DraftEngine renders draft translations locally: it extracts the text of
// each source page and re-typesets it annotated with the target language.
// It exists so the whole upload/translate/download cycle works end to end
// before a production pipeline replaces it; unlike a timer-based fake, its
// progress reflects pages actually processed.
type DraftEngine struct{}

// Ensure DraftEngine implements Translator.
var _ Translator = (*DraftEngine)(nil)

// NewDraftEngine creates a DraftEngine.
func NewDraftEngine() *DraftEngine {
	return &DraftEngine{}
}

// Translate renders the mono and dual output variants for the request.
func (e *DraftEngine) Translate(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	f, reader, err := pdf.Open(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source document: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total < 1 {
		return nil, fmt.Errorf("source document has no pages")
	}

	langFrom := settingString(req.Settings, "lang_from", "English")
	langTo := settingString(req.Settings, "lang_to", "Simplified Chinese")

	mono := newDocument()
	dual := newDocument()
	monoTr := mono.UnicodeTranslatorFromDescriptor("")
	dualTr := dual.UnicodeTranslatorFromDescriptor("")

	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text := extractPageText(reader, i)
		draft := draftText(text, langFrom, langTo)

		addPage(mono, monoTr, fmt.Sprintf("Page %d - %s (draft)", i, langTo), draft)
		addPage(dual, dualTr, fmt.Sprintf("Page %d - %s (original)", i, langFrom), text)
		addPage(dual, dualTr, fmt.Sprintf("Page %d - %s (draft)", i, langTo), draft)

		if progress != nil {
			progress(i, total)
		}
	}

	monoPath := filepath.Join(req.OutputDir, monoFilename)
	if err := mono.OutputFileAndClose(monoPath); err != nil {
		return nil, fmt.Errorf("failed to write mono output: %w", err)
	}
	dualPath := filepath.Join(req.OutputDir, dualFilename)
	if err := dual.OutputFileAndClose(dualPath); err != nil {
		return nil, fmt.Errorf("failed to write dual output: %w", err)
	}

	return &Result{MonoPath: monoPath, DualPath: dualPath}, nil
}

func newDocument() *gofpdf.Fpdf {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	return doc
}

// addPage appends one page with a bold header line and body text.
func addPage(doc *gofpdf.Fpdf, tr func(string) string, header, body string) {
	doc.AddPage()
	doc.SetFont("Arial", "B", 12)
	doc.MultiCell(0, 6, tr(header), "", "L", false)
	doc.Ln(4)
	doc.SetFont("Arial", "", 10)
	if strings.TrimSpace(body) == "" {
		body = "(no extractable text on this page)"
	}
	for _, line := range strings.Split(body, "\n") {
		doc.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

// extractPageText pulls the plain text of one page. Extraction failures fall
// back to a placeholder rather than failing the whole task.
func extractPageText(reader *pdf.Reader, pageNum int) string {
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return fmt.Sprintf("(text extraction failed: %v)", err)
	}
	return text
}

// draftText produces the draft "translation" of a page: the source text
// tagged with the requested language pair. A production engine replaces this
// wholesale.
func draftText(text, langFrom, langTo string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return fmt.Sprintf("[%s -> %s]\n%s", langFrom, langTo, text)
}

// settingString reads a string-valued key from the opaque settings map.
func settingString(settings map[string]any, key, fallback string) string {
	if settings == nil {
		return fallback
	}
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
