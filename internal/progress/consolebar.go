package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// ConsoleBar is a Sink that renders a terminal progress bar. Desktop hosts
// that embed the engine in a CLI context use it as the default sink.
type ConsoleBar struct {
	bar *progressbar.ProgressBar
}

// NewConsoleBar creates a console progress bar for the named transfer,
// writing to w.
func NewConsoleBar(name string, w io.Writer) *ConsoleBar {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &ConsoleBar{bar: bar}
}

// Update sets the bar to the given percentage.
func (c *ConsoleBar) Update(percent int) {
	_ = c.bar.Set(percent)
}

// Done finishes the bar. On failure the partial bar is cleared.
func (c *ConsoleBar) Done(err error) {
	if err != nil {
		_ = c.bar.Clear()
		return
	}
	_ = c.bar.Finish()
}
