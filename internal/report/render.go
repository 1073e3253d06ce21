package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// Print renders markdown for the terminal. When styling fails the raw
// markdown is written instead; it is still readable.
func Print(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}
