package ocr

import "context"

// Input is one page image handed to the engine. WorkDir is where the engine
// may write its own scratch and output files; when empty they land next to
// the image.
type Input struct {
	ImagePath string
	PageIndex int
	WorkDir   string
}

// Result carries what the engine recognized: plain text plus a single-page
// searchable PDF with the text layered under the original image.
type Result struct {
	Text string
	PDF  []byte
}

// Engine turns a page image into text and a searchable PDF fragment.
type Engine interface {
	Recognize(ctx context.Context, in Input) (Result, error)
}
