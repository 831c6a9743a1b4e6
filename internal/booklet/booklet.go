// Package booklet composites the pages of a PDF document into stacked
// cells on fixed-size output sheets, producing a condensed printable
// booklet.
package booklet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"notes-booklet/internal/layout"
)

// Options controls the sheet geometry of a compose run.
type Options struct {
	SheetWidth  float64
	SheetHeight float64
	Rows        int
	DrawGrid    bool
}

// DefaultOptions returns the standard layout: four cells per A4 sheet,
// no grid lines.
func DefaultOptions() Options {
	return Options{
		SheetWidth:  layout.A4Width,
		SheetHeight: layout.A4Height,
		Rows:        layout.DefaultRows,
	}
}

func (o Options) grid() layout.Grid {
	return layout.Grid{SheetWidth: o.SheetWidth, SheetHeight: o.SheetHeight, Rows: o.Rows}
}

// Result summarizes a compose run.
type Result struct {
	SourcePages int
	Sheets      int
}

// Compose reads a PDF from rs, places each source page into the next
// free cell of the current sheet and writes the assembled booklet to w.
// Source order is preserved; a sheet holds up to Rows pages and trailing
// cells of the last sheet stay blank. Any malformed page aborts the whole
// document.
func Compose(rs io.ReadSeeker, w io.Writer, opts Options) (Result, error) {
	grid := opts.grid()
	if err := grid.Validate(); err != nil {
		return Result{}, err
	}

	ctx, err := pdfapi.ReadValidateAndOptimize(rs, model.NewDefaultConfiguration())
	if err != nil {
		return Result{}, fmt.Errorf("reading input PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Result{}, err
	}
	if ctx.PageCount == 0 {
		return Result{}, errors.New("input PDF has no pages")
	}

	// The rule overlay depends only on the sheet geometry, so it is
	// rendered once and appended to every sheet's content.
	var rules []byte
	if opts.DrawGrid {
		rules = ruleContent(grid)
	}

	var sheets [][]byte
	for first := 1; first <= ctx.PageCount; first += grid.Rows {
		nrs := make([]int, 0, grid.Rows)
		for nr := first; nr <= ctx.PageCount && nr < first+grid.Rows; nr++ {
			nrs = append(nrs, nr)
		}
		// Content is decoded from the source context: page extraction
		// leaves migrated no-filter streams with an empty (non-nil)
		// filter pipeline that PageContent cannot decode.
		contents := make([][]byte, len(nrs))
		for i, nr := range nrs {
			c, err := sourcePageContent(ctx, nr)
			if err != nil {
				return Result{}, fmt.Errorf("page %d: %w", nr, err)
			}
			contents[i] = c
		}

		sheet, err := composeSheet(ctx, nrs, contents, grid, rules)
		if err != nil {
			return Result{}, err
		}
		sheets = append(sheets, sheet)
	}

	res := Result{SourcePages: ctx.PageCount, Sheets: len(sheets)}

	if len(sheets) == 1 {
		if _, err := w.Write(sheets[0]); err != nil {
			return Result{}, err
		}
		return res, nil
	}

	readers := make([]io.ReadSeeker, len(sheets))
	for i, b := range sheets {
		readers[i] = bytes.NewReader(b)
	}
	if err := pdfapi.MergeRaw(readers, w, false, model.NewDefaultConfiguration()); err != nil {
		return Result{}, fmt.Errorf("merging sheets: %w", err)
	}
	return res, nil
}

// ComposeFile runs Compose from inPath to outPath. On failure the
// partial output file is removed.
func ComposeFile(inPath, outPath string, opts Options) (Result, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Result{}, err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, err
	}

	res, err := Compose(in, out, opts)
	if err != nil {
		out.Close()
		os.Remove(outPath)
		return Result{}, err
	}
	return res, out.Close()
}

// composeSheet builds a single output sheet holding the given source
// pages. The pages are extracted into a scratch context, wrapped as form
// XObjects and drawn onto the first page of that context, which is then
// reduced to a standalone one-page document.
func composeSheet(src *model.Context, pageNrs []int, contents [][]byte, grid layout.Grid, rules []byte) ([]byte, error) {
	ctx, err := pdfcpu.ExtractPages(src, pageNrs, false)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}

	var content bytes.Buffer
	forms := make([]*types.IndirectRef, 0, len(pageNrs))

	for q, nr := range pageNrs {
		ref, w, h, err := pageForm(ctx, q+1, contents[q])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", nr, err)
		}

		cell := grid.Cell(q)
		p, err := layout.FitScale(w, h, cell.Width, cell.Height)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", nr, err)
		}

		fmt.Fprintf(&content, "q %.5f 0 0 %.5f %.5f %.5f cm /Fm%d Do Q ",
			p.Scale, p.Scale, cell.X+p.Tx, cell.Y+p.Ty, q)
		forms = append(forms, ref)
	}

	content.Write(rules)

	pageDict, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, errors.New("missing page dict for sheet assembly")
	}

	sheetBox := types.RectForWidthAndHeight(0, 0, grid.SheetWidth, grid.SheetHeight)
	pageDict["MediaBox"] = sheetBox.Array()
	pageDict["CropBox"] = sheetBox.Array()
	pageDict.Delete("Rotate")
	pageDict.Delete("Annots")

	xObjs := types.Dict{}
	for q, ref := range forms {
		xObjs[fmt.Sprintf("Fm%d", q)] = *ref
	}
	pageDict["Resources"] = types.Dict{"XObject": xObjs}

	sd, _ := ctx.NewStreamDictForBuf(content.Bytes())
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	indRef, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, err
	}
	pageDict["Contents"] = *indRef

	// Drop the leftover source pages so the sheet serializes as a
	// one-page document.
	sheetCtx, err := pdfcpu.ExtractPages(ctx, []int{1}, false)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := pdfapi.WriteContext(sheetCtx, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// sourcePageContent returns the decoded content stream of page nr, or
// nil for a page without content.
func sourcePageContent(ctx *model.Context, nr int) ([]byte, error) {
	pageDict, _, _, err := ctx.PageDict(nr, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, errors.New("missing page dict")
	}
	if _, found := pageDict.Find("Contents"); !found {
		// Blank source pages still occupy their cell via an empty form.
		return nil, nil
	}
	return ctx.PageContent(pageDict)
}

// pageForm wraps page nr of ctx as a form XObject and returns its
// reference along with the page's effective display size. The page's
// decoded content is supplied by the caller. A /Rotate entry is folded
// into the form's content stream, swapping the display dimensions for
// 90/270 degree rotations.
func pageForm(ctx *model.Context, nr int, pageContent []byte) (*types.IndirectRef, float64, float64, error) {
	pageDict, _, inh, err := ctx.PageDict(nr, false)
	if err != nil {
		return nil, 0, 0, err
	}
	if pageDict == nil {
		return nil, 0, 0, errors.New("missing page dict")
	}

	box := inh.MediaBox
	if box == nil {
		box = inh.CropBox
	}
	if box == nil {
		return nil, 0, 0, errors.New("missing media box")
	}

	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid page dimensions %.2f x %.2f", w, h)
	}

	rot := ((inh.Rotate % 360) + 360) % 360
	if rot == 90 || rot == 270 {
		w, h = h, w
	}

	var buf bytes.Buffer
	if rot != 0 {
		buf.Write(model.ContentBytesForPageRotation(inh.Rotate, w, h))
	}
	buf.Write(pageContent)

	sd, _ := ctx.NewStreamDictForBuf(buf.Bytes())
	sd.InsertName("Type", "XObject")
	sd.InsertName("Subtype", "Form")
	bbox := types.NewRectangle(box.LL.X, box.LL.Y, box.LL.X+w, box.LL.Y+h)
	sd.Insert("BBox", bbox.Array())
	sd.Insert("Matrix", types.NewNumberArray(1, 0, 0, 1, -box.LL.X, -box.LL.Y))
	if len(inh.Resources) > 0 {
		sd.Insert("Resources", inh.Resources)
	}
	if err := sd.Encode(); err != nil {
		return nil, 0, 0, err
	}

	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, 0, 0, err
	}
	return ref, w, h, nil
}

// ruleContent renders the grid overlay: black 1 pt dividing lines,
// stroked after all page content so they stay on top.
func ruleContent(grid layout.Grid) []byte {
	var b bytes.Buffer
	b.WriteString("q 0 G 1 w ")
	for _, r := range grid.Rules() {
		fmt.Fprintf(&b, "%.5f %.5f m %.5f %.5f l ", r.X1, r.Y1, r.X2, r.Y2)
	}
	b.WriteString("S Q ")
	return b.Bytes()
}
