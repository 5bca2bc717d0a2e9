package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptPreviewHTML_EmptyInput(t *testing.T) {
	assert.Equal(t, "", AdaptPreviewHTML(""))
}

func TestAdaptPreviewHTML_WidensContainer(t *testing.T) {
	out := AdaptPreviewHTML(`<div class="container"><p>x</p></div>`)
	assert.Contains(t, out, `<div class="container" style="max-width: 100%; width: 100%;">`)
}

func TestAdaptPreviewHTML_EnlargesFonts(t *testing.T) {
	out := AdaptPreviewHTML("<style>.a{}</style>")
	assert.Contains(t, out, "body {font-size: 16px;}")
	assert.Contains(t, out, ".text-content {font-size: 16px; line-height: 1.5;}")
}

func TestAdaptPreviewHTML_FlexesRowsAndColumns(t *testing.T) {
	out := AdaptPreviewHTML(`<div class="row"><div class="col-md-6">a</div><div class="col-md-6">b</div></div>`)
	assert.Contains(t, out, `<div class="row" style="display: flex; flex-wrap: wrap;">`)
	assert.Equal(t, 2, strings.Count(out, `flex: 0 0 50%; max-width: 50%; padding: 15px;`))
}

func TestAdaptPreviewHTML_SpacesPages(t *testing.T) {
	out := AdaptPreviewHTML(`<div class="page">p1</div>`)
	assert.Contains(t, out, `margin-bottom: 30px; border-bottom: 1px solid #ccc; padding-bottom: 20px;`)
}

func TestAdaptPreviewHTML_MakesImagesResponsive(t *testing.T) {
	out := AdaptPreviewHTML(`<img class="pic" style="width: 600px; border: 1px;" src="p.png">`)
	assert.Contains(t, out, `<img class="pic" style="max-width: 100%; height: auto; width: 600px; border: 1px;" src="p.png">`)
}

func TestAdaptPreviewHTML_LeavesUnstyledImagesAlone(t *testing.T) {
	in := `<img src="p.png">`
	assert.Equal(t, in, AdaptPreviewHTML(in))
}

func TestAdaptPreviewHTML_InjectsZoomControls(t *testing.T) {
	out := AdaptPreviewHTML("<html><body><p>hi</p></body></html>")
	assert.Contains(t, out, "放大")
	assert.Contains(t, out, "缩小")
	assert.Less(t, strings.Index(out, "放大"), strings.Index(out, "</body>"))
}

func TestAdaptPreviewHTML_Deterministic(t *testing.T) {
	in := `<html><style></style><body><div class="container"><div class="page"><img style="w"></div></div></body></html>`
	assert.Equal(t, AdaptPreviewHTML(in), AdaptPreviewHTML(in))
}

func TestAdaptPreviewHTML_AppliedTwiceDuplicatesControls(t *testing.T) {
	once := AdaptPreviewHTML("<body></body>")
	twice := AdaptPreviewHTML(once)
	assert.Equal(t, 1, strings.Count(once, "放大"))
	assert.Equal(t, 2, strings.Count(twice, "放大"))
}
