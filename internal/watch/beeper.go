package watch

import (
	"context"
	"io"
	"os"
)

// Beeper is the local audible primitive the reconciler drives. A failed
// Beep forces the alarm back to idle rather than leaving a half-started
// loop.
type Beeper interface {
	Beep(ctx context.Context) error
}

// BellBeeper rings the terminal bell. Good enough for a headless
// watcher on a box with a speaker; swap in something louder if not.
type BellBeeper struct {
	Out io.Writer
}

func (b *BellBeeper) Beep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := b.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := out.Write([]byte("\a"))
	return err
}
