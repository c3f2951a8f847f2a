package authpoll

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/mdp/qrterminal/v3"
)

// Opener shows the authorize page to the user.
type Opener interface {
	// Open shows url. The returned window may be nil when the page is not
	// tracked.
	Open(ctx context.Context, url string) (Window, error)
}

// Window is a handle to an opened authorize page. Closing it is best-effort.
type Window interface {
	Close() error
	Closed() bool
}

// TerminalOpener prints the authorize URL and, optionally, a QR code of it.
type TerminalOpener struct {
	Out io.Writer
	QR  bool
}

// Open writes the URL. The page is not tracked, so the window is nil.
func (o TerminalOpener) Open(_ context.Context, url string) (Window, error) {
	if o.Out == nil {
		return nil, nil
	}
	if _, err := fmt.Fprintf(o.Out, "Open this page to connect with GitHub:\n  %s\n", url); err != nil {
		return nil, err
	}
	if o.QR {
		qrterminal.GenerateHalfBlock(url, qrterminal.L, o.Out)
	}
	return nil, nil
}

// Popup dimensions of the authorize window.
const (
	PopupWidth  = 350
	PopupHeight = 600
)

// BrowserOpener opens the authorize page in a dedicated Chrome window.
type BrowserOpener struct {
	Width  int
	Height int
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// Open launches the browser and navigates to url. The returned window closes
// the browser.
func (o BrowserOpener) Open(ctx context.Context, url string) (Window, error) {
	width, height := o.Width, o.Height
	if width <= 0 {
		width = PopupWidth
	}
	if height <= 0 {
		height = PopupHeight
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.WindowSize(width, height),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("open authorize page: %w", err)
	}
	return &browserWindow{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

type browserWindow struct {
	ctx    context.Context
	cancel func()
	once   sync.Once
}

func (w *browserWindow) Close() error {
	w.once.Do(w.cancel)
	return nil
}

func (w *browserWindow) Closed() bool {
	return w.ctx.Err() != nil
}
