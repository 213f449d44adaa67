// Package render displays hosted VirusTotal graphs.
package render

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// EmbedBaseURL is the root of the hosted graph viewer.
	EmbedBaseURL = "https://www.virustotal.com/graph/embed/"

	DefaultWidth  = 800
	DefaultHeight = 600
)

var embedTemplate = template.Must(template.New("embed").Parse(
	`<iframe src="{{.URL}}" width="{{.Width}}" height="{{.Height}}"></iframe>` + "\n"))

// EmbedURL returns the viewer URL for graphID.
func EmbedURL(graphID string) string {
	return EmbedBaseURL + url.PathEscape(graphID)
}

// Embed writes an iframe pointing at the hosted viewer for graphID.
// Non-positive sizes fall back to the defaults. The identifier is not checked.
func Embed(w io.Writer, graphID string, width, height int) error {
	width, height = size(width, height)
	err := embedTemplate.Execute(w, struct {
		URL           string
		Width, Height int
	}{EmbedURL(graphID), width, height})
	if err != nil {
		return fmt.Errorf("render graph %s: %w", graphID, err)
	}
	return nil
}

// Screenshot loads the hosted viewer for graphID in headless Chrome and
// returns a PNG of the viewport.
func Screenshot(ctx context.Context, graphID string, width, height int) ([]byte, error) {
	width, height = size(width, height)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(width, height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(EmbedURL(graphID)),
		// the viewer draws asynchronously after load
		chromedp.Sleep(5*time.Second),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot graph %s: %w", graphID, err)
	}
	return png, nil
}

func size(width, height int) (int, int) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}
