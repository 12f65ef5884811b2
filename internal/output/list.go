package output

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// PrintPaged lists values as "<i>) <value>" lines, asking on r whether to
// continue after every warningAt entries. A warningAt of 0 never asks.
// It returns the number of values printed.
func PrintPaged(w io.Writer, r io.Reader, values iter.Seq[resp.RedisValue], warningAt int) int {
	i := 0
	for value := range values {
		if e, ok := value.(resp.RedisError); ok {
			fmt.Fprintln(w, Colorize(ColorError, "(error) "+e.Value))
			break
		}

		i++
		fmt.Fprintf(w, "%d) %s\n", i, Flat(value))

		if warningAt > 0 && i%warningAt == 0 {
			fmt.Fprint(w, "Continue Listing? ")
			fmt.Fprint(w, Colorize(ColorWarning, "(Y/N) "))
			if !confirm(r) {
				break
			}
		}
	}
	return i
}

// confirm reads one line byte by byte so nothing beyond it is consumed
// from a shared stdin.
func confirm(r io.Reader) bool {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				break
			}
		}
		if err != nil {
			break
		}
	}
	ans := strings.TrimSpace(string(line))
	return len(ans) > 0 && (ans[0] == 'Y' || ans[0] == 'y')
}

// Confirm asks a yes/no question on w and reads the answer from r.
func Confirm(w io.Writer, r io.Reader, question string) bool {
	fmt.Fprint(w, Colorize(ColorWarning, question+" (Y/N) "))
	return confirm(r)
}
