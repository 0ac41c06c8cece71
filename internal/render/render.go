// Package render converts HTML guidance pages into archivable PDF artifacts.
//
// Two implementations exist: a static renderer that extracts visible text
// with goquery and typesets it with gofpdf, and a headless-Chrome renderer
// for pages that only materialize under JavaScript.
package render

import "context"

// Renderer produces a PDF artifact for an HTML resource. The html argument
// carries the already-fetched body; implementations that re-navigate (such as
// the headless renderer) may ignore it.
type Renderer interface {
	RenderPDF(ctx context.Context, url string, html []byte) ([]byte, error)
}
