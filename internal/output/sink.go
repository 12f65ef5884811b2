package output

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Sink receives formatted replies. Publish may be called from the
// connection's reader goroutine while the REPL goroutine also publishes.
type Sink interface {
	Publish(Reply)
}

// WriterSink prints replies to a writer, one display line per line.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewWriterSink returns a sink writing to w. With useColor, nil, integer and
// index markers are styled the way redis-cli does.
func NewWriterSink(w io.Writer, useColor bool) *WriterSink {
	return &WriterSink{w: w, color: useColor}
}

// Publish writes r followed by a newline.
func (s *WriterSink) Publish(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Kind {
	case KindLines:
		if len(r.Lines) == 0 {
			fmt.Fprintln(s.w, s.paint(ColorNil, "(empty array)"))
			return
		}
		for _, line := range r.Lines {
			if idx, rest, ok := strings.Cut(line, ") "); ok && s.color {
				fmt.Fprintln(s.w, s.paint(ColorIndex, idx+") ")+rest)
				continue
			}
			fmt.Fprintln(s.w, line)
		}
	case KindNil:
		fmt.Fprintln(s.w, s.paint(ColorNil, r.Text))
	case KindInteger:
		fmt.Fprintln(s.w, s.paint(ColorInteger, r.Text))
	default:
		// error replies arrive already colorized
		fmt.Fprintln(s.w, r.Text)
	}
}

func (s *WriterSink) paint(kind ColorKind, text string) string {
	if !s.color {
		return text
	}
	return Colorize(kind, text)
}

// PipeSink feeds each reply to a shell command through its stdin, e.g.
// `GET json | jq .`. The command's output and failures go to w.
type PipeSink struct {
	mu       sync.Mutex
	w        io.Writer
	shellCmd string
}

// NewPipeSink returns a sink piping into shellCmd.
func NewPipeSink(w io.Writer, shellCmd string) *PipeSink {
	return &PipeSink{w: w, shellCmd: shellCmd}
}

// Publish runs the shell command once for r.
func (s *PipeSink) Publish(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Pipe(s.w, r, s.shellCmd); err != nil {
		fmt.Fprintln(s.w, Colorize(ColorError, fmt.Sprintf("Pipe error: %v", err)))
	}
}

// Pipe writes r to the stdin of shellCmd, with the command's stdout and
// stderr attached to w.
func Pipe(w io.Writer, r Reply, shellCmd string) error {
	args := strings.Fields(shellCmd)
	if len(args) == 0 {
		return nil
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	_, werr := io.WriteString(stdin, r.String()+"\n")
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return err
	}
	return werr
}

// CollectSink keeps every published reply in memory.
type CollectSink struct {
	mu      sync.Mutex
	replies []Reply
	notify  chan struct{}
}

// NewCollectSink returns an empty CollectSink.
func NewCollectSink() *CollectSink {
	return &CollectSink{notify: make(chan struct{}, 64)}
}

// Publish records r.
func (s *CollectSink) Publish(r Reply) {
	s.mu.Lock()
	s.replies = append(s.replies, r)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Replies returns a copy of everything published so far.
func (s *CollectSink) Replies() []Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reply, len(s.replies))
	copy(out, s.replies)
	return out
}

// Published signals after each Publish; useful to wait for asynchronous
// push output without sleeping.
func (s *CollectSink) Published() <-chan struct{} {
	return s.notify
}

// FileSink writes replies to a file without colors; error replies go to
// errOut instead so a failed export does not leave them in the file.
type FileSink struct {
	mu     sync.Mutex
	f      *os.File
	errOut io.Writer
	lines  int
	err    error
}

// NewFileSink creates (or truncates) path.
func NewFileSink(path string, errOut io.Writer) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, errOut: errOut}, nil
}

// Publish appends r to the file, one display line per line.
func (s *FileSink) Publish(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Kind == KindError {
		fmt.Fprintln(s.errOut, r.Text)
		return
	}
	if s.err != nil {
		return
	}

	lines := []string{r.Text}
	if r.IsLines() {
		lines = r.Lines
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(s.f, line); err != nil {
			s.err = err
			return
		}
		s.lines++
	}
}

// Close closes the file and reports how many lines were written and the
// first write error, if any.
func (s *FileSink) Close() (lines int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cerr := s.f.Close(); s.err == nil {
		s.err = cerr
	}
	return s.lines, s.err
}
