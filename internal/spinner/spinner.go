package spinner

import (
	"fmt"
	"io"
	"time"

	"github.com/kendallb/PhalangerMySql/internal/styles"
)

var stages = []string{"▉", "▊", "▋", "▌", "▍", "▎", "▏", "▎", "▍", "▌", "▋", "▊", "▉"}

const tick = 100 * time.Millisecond

// Start draws an elapsed-time spinner on w until the returned stop is
// called. stop clears the line and waits for the spinner to finish. A nil
// w draws nothing.
func Start(w io.Writer) (stop func()) {
	if w == nil {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		wait(w, done)
	}()

	return func() {
		close(done)
		<-finished
	}
}

func wait(w io.Writer, done <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	start := time.Now()
	for i := 0; ; i++ {
		fmt.Fprintf(w, "\r%s %.2fs", styles.Faint.Render(stages[i%len(stages)]), time.Since(start).Seconds())
		select {
		case <-done:
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}
