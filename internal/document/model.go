package document

// PageKind says which variant a page is: native text layer or scan.
type PageKind int

const (
	TextPage PageKind = iota
	ScanPage
)

func (k PageKind) String() string {
	if k == ScanPage {
		return "scan"
	}
	return "text"
}

// Page is one page of a classified document. Text pages carry their
// normalized native text; scan pages get their text and searchable PDF
// fragment from recognition, keyed by Index.
type Page struct {
	Index int
	Kind  PageKind
	Text  string
}

// Document is the classified form of one job's file.
type Document struct {
	Path      string
	PageCount int
	Pages     []Page
}

// ScanIndices returns the indices of pages that need recognition, in page
// order.
func (d *Document) ScanIndices() []int {
	var idx []int
	for _, p := range d.Pages {
		if p.Kind == ScanPage {
			idx = append(idx, p.Index)
		}
	}
	return idx
}
