// Package translator defines the document translation pipeline boundary.
// The real pipeline is an external collaborator; this package owns only the
// interface the task runner drives and a built-in draft engine used until a
// production pipeline is wired in.
package translator

import "context"

// Request describes one translation job.
type Request struct {
	// SourcePath is the uploaded PDF to translate.
	SourcePath string

	// OutputDir is the directory the engine writes its outputs into.
	OutputDir string

	// Settings is the opaque per-request configuration the client supplied.
	// Engines read the keys they understand and ignore the rest.
	Settings map[string]any
}

// Result carries the rendered output variants.
type Result struct {
	// MonoPath is the translated-only document.
	MonoPath string

	// DualPath is the side-by-side original/translated document.
	DualPath string
}

// ProgressFunc receives streaming progress as the engine finishes pages.
// page counts from 1 to totalPages.
type ProgressFunc func(page, totalPages int)

// Translator turns a source document into translated output variants,
// reporting progress as it goes. Implementations must honor context
// cancellation between units of work.
type Translator interface {
	Translate(ctx context.Context, req Request, progress ProgressFunc) (*Result, error)
}
