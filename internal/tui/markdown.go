package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// notesRenderer renders work-order notes as markdown and recreates the
// glamour renderer when the wrap width changes.
type notesRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts the notes markdown into ANSI-styled terminal text with the
// requested wrap width, falling back to the raw text when rendering fails.
func (r *notesRenderer) render(notes string, width int) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return notes
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(notes)
	if err != nil {
		return notes
	}
	return strings.TrimRight(rendered, "\n")
}
