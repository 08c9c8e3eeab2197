package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/broar/playbin-cli/pkg/session"
)

// Reporter writes the output of a session to a line oriented writer. Progress is redrawn in place with a carriage
// return and is ended with a newline before any other line is written
type Reporter struct {
	mu          sync.Mutex
	out         io.Writer
	errOut      io.Writer
	progressing bool
	last        string
}

var _ session.Reporter = (*Reporter)(nil)

// NewReporter returns a Reporter writing messages to out and errors to errOut. A nil errOut writes errors to out
func NewReporter(out, errOut io.Writer) *Reporter {
	if errOut == nil {
		errOut = out
	}

	return &Reporter{out: out, errOut: errOut}
}

// Progress rewrites the position line. Unchanged positions are not written again
func (r *Reporter) Progress(progress session.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := progress.String()
	if r.progressing && line == r.last {
		return
	}

	fmt.Fprintf(r.out, "\r%s", line)
	r.progressing = true
	r.last = line
}

func (r *Reporter) StreamsAnalyzed(report session.StreamReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endProgress()
	for _, line := range report.Lines() {
		fmt.Fprintln(r.out, line)
	}
}

func (r *Reporter) Info(text string) {
	r.println(r.out, text)
}

func (r *Reporter) Error(text string) {
	r.println(r.errOut, text)
}

func (r *Reporter) println(w io.Writer, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endProgress()
	fmt.Fprintln(w, text)
}

// endProgress terminates a pending progress line. Must be called with the lock held
func (r *Reporter) endProgress() {
	if !r.progressing {
		return
	}

	fmt.Fprintln(r.out)
	r.progressing = false
	r.last = ""
}
