package extract

import (
	"regexp"
	"strings"
)

// The preview tool emits Bootstrap-styled pages sized for a standalone browser
// tab. These substitutions rework the markup for embedding in the app UI:
// full-width container, larger text, flexed side-by-side columns, responsive
// images and fixed zoom controls.

var imgStyleRe = regexp.MustCompile(`<img([^>]*)style="([^"]*)"`)

const zoomControls = `
    <div style="position: fixed; bottom: 20px; right: 20px; background: #fff; padding: 10px; border-radius: 5px; box-shadow: 0 0 10px rgba(0,0,0,0.2); z-index: 1000;">
        <button onclick="document.body.style.zoom = parseFloat(document.body.style.zoom || 1) + 0.1;" style="margin-right: 5px;">放大</button>
        <button onclick="document.body.style.zoom = parseFloat(document.body.style.zoom || 1) - 0.1;">缩小</button>
    </div>
    `

// AdaptPreviewHTML rewrites preview markup for inline display. It is a pure
// text transformation applied exactly once per preview; applying it twice
// duplicates the injected controls.
func AdaptPreviewHTML(html string) string {
	if html == "" {
		return html
	}

	html = strings.ReplaceAll(html, `<div class="container">`,
		`<div class="container" style="max-width: 100%; width: 100%;">`)

	html = strings.ReplaceAll(html, "<style>",
		"<style>\nbody {font-size: 16px;}\n.text-content {font-size: 16px; line-height: 1.5;}\n")

	html = strings.ReplaceAll(html, `<div class="row">`,
		`<div class="row" style="display: flex; flex-wrap: wrap;">`)
	html = strings.ReplaceAll(html, `<div class="col-md-6">`,
		`<div class="col-md-6" style="flex: 0 0 50%; max-width: 50%; padding: 15px;">`)

	html = strings.ReplaceAll(html, `<div class="page">`,
		`<div class="page" style="margin-bottom: 30px; border-bottom: 1px solid #ccc; padding-bottom: 20px;">`)

	html = imgStyleRe.ReplaceAllString(html, `<img${1}style="max-width: 100%; height: auto; ${2}"`)

	html = strings.ReplaceAll(html, "</body>", zoomControls+"</body>")

	return html
}
