package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v2"
)

// barProgress renders pipeline progress as a terminal bar.
type barProgress struct {
	mu   sync.Mutex
	w    io.Writer
	bar  *progressbar.ProgressBar
	done int
}

func newBarProgress(w io.Writer, total int, desc string) *barProgress {
	return &barProgress{
		w: w,
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(desc),
		),
	}
}

// Advance moves the bar to done. Progress never goes backwards.
func (b *barProgress) Advance(done, _ int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if done <= b.done {
		return
	}
	_ = b.bar.Add(done - b.done)
	b.done = done
}

func (b *barProgress) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
	fmt.Fprintln(b.w)
}
