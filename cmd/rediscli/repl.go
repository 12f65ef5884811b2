package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cosmez/rediscli-go/internal/command"
	"github.com/cosmez/rediscli-go/internal/config"
	"github.com/cosmez/rediscli-go/internal/output"
	"github.com/cosmez/rediscli-go/internal/serializer"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// replCompleter completes command names, HELP groups and codec names.
type replCompleter struct {
	reg *command.Registry
}

func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	text := string(line[:pos])

	if i := strings.LastIndex(text, "#:"); i != -1 {
		prefix := strings.ToLower(text[i+2:])
		for _, name := range serializer.Names() {
			if strings.HasPrefix(name, prefix) {
				newLine = append(newLine, []rune(name[len(prefix):]))
			}
		}
		return newLine, len(prefix)
	}

	if word, group, ok := strings.Cut(text, " "); ok {
		if !strings.EqualFold(word, "HELP") || !strings.HasPrefix(group, "@") || strings.Contains(group, " ") {
			return nil, 0
		}
		prefix := strings.ToLower(group[1:])
		for _, g := range c.reg.Groups() {
			if strings.HasPrefix(g, prefix) {
				newLine = append(newLine, []rune(g[len(prefix):]+" "))
			}
		}
		return newLine, len(prefix)
	}

	for _, match := range c.reg.GetCommands(text) {
		newLine = append(newLine, []rune(match[len(text):]+" "))
	}
	return newLine, len(text)
}

// replHinter shows "<command> <arguments> - <summary>" below the input.
// Paint only clears stale hints; OnChange draws the hint after readline has
// finished its own display update, using save/restore cursor moves so
// readline's cursor math is never affected.
type replHinter struct {
	reg       *command.Registry
	promptLen int
	termWidth int
}

// copyAppend returns line + suffix without touching line's backing array.
func copyAppend(line []rune, suffix string) []rune {
	sfx := []rune(suffix)
	out := make([]rune, len(line)+len(sfx))
	copy(out, line)
	copy(out[len(line):], sfx)
	return out
}

func (h *replHinter) Paint(line []rune, pos int) []rune {
	return copyAppend(line, "\033[J")
}

func (h *replHinter) OnChange(line []rune, pos int, key rune) ([]rune, int, bool) {
	if len(line) == 0 {
		return nil, 0, false
	}

	text := string(line)
	cmd, rest, spaced := strings.Cut(text, " ")

	// upper-case a known command word, e.g. after tab completion of "hgetaLL"
	if upper := strings.ToUpper(cmd); cmd != upper && h.reg.Get(upper) != nil {
		return []rune(upper + text[len(cmd):]), pos, true
	}

	if !spaced || cmd == "" {
		return nil, 0, false
	}

	doc := h.findDoc(cmd, rest)
	if doc == nil {
		return nil, 0, false
	}

	hint := strings.TrimSpace(doc.Command + " " + doc.Arguments)
	hintWidth := 2 + len(hint) + 3 + len(doc.Summary)
	hintRows := 1
	if h.termWidth > 0 {
		hintRows = (hintWidth + h.termWidth - 1) / h.termWidth
	}

	fmt.Fprintf(os.Stdout, "\n\r\033[K  \033[36m%s\033[0m\033[34m - %s\033[0m\033[%dA\r\033[%dC",
		hint, doc.Summary, hintRows, h.promptLen+pos)

	return nil, 0, false
}

// findDoc tries a compound command ("CLIENT INFO") before the base command.
func (h *replHinter) findDoc(cmd, rest string) *command.CommandDoc {
	base := strings.ToUpper(cmd)
	if fields := strings.Fields(rest); len(fields) > 0 {
		if doc := h.reg.Get(base + " " + strings.ToUpper(fields[0])); doc != nil {
			return doc
		}
	}
	return h.reg.Get(base)
}

// promptIO lets output.Confirm and output.PrintPaged talk to the user
// through readline. Complete lines written to it go straight to the
// terminal; a trailing partial line becomes the prompt of the next read.
type promptIO struct {
	rl      *readline.Instance
	prompt  string // the REPL prompt restored after each answer
	pending []byte
	answer  []byte
}

func (p *promptIO) Write(b []byte) (int, error) {
	p.pending = append(p.pending, b...)
	if i := bytes.LastIndexByte(p.pending, '\n'); i >= 0 {
		if _, err := p.rl.Stdout().Write(p.pending[:i+1]); err != nil {
			return 0, err
		}
		p.pending = append([]byte(nil), p.pending[i+1:]...)
	}
	return len(b), nil
}

func (p *promptIO) Read(b []byte) (int, error) {
	if len(p.answer) == 0 {
		p.rl.SetPrompt(string(p.pending))
		p.pending = nil
		line, err := p.rl.Readline()
		p.rl.SetPrompt(p.prompt)
		if err != nil {
			return 0, err
		}
		p.answer = []byte(line + "\n")
	}
	n := copy(b, p.answer)
	p.answer = p.answer[n:]
	return n, nil
}

func promptFor(t target) string {
	return t.addr() + "> "
}

func runRepl(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg, err := command.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load commands: %w", err)
	}

	t := target{host: cfg.Host, port: cfg.Port, user: cfg.Username, pass: cfg.Password}
	prompt := promptFor(t)
	tw, _, _ := term.GetSize(int(os.Stdout.Fd()))
	hinter := &replHinter{reg: reg, promptLen: len(prompt), termWidth: tw}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    &replCompleter{reg: reg},
		Painter:         hinter,
		Listener:        hinter,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	pio := &promptIO{rl: rl, prompt: prompt}
	s := &session{
		log:    log,
		reg:    reg,
		out:    rl.Stdout(),
		sink:   output.NewWriterSink(rl.Stdout(), !color.NoColor),
		prompt: pio,
		ask:    true,
		page:   cfg.PageSize,
		onConnect: func(t target) {
			p := promptFor(t)
			pio.prompt = p
			hinter.promptLen = len(p)
			rl.SetPrompt(p)
		},
	}

	if err := s.connect(ctx, t); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer s.close()
	printBanner(s.out, s.conn.ServerInfo)

	for {
		line, err := rl.Readline()

		// any input, Ctrl+C included, ends the running subscription or monitor
		if s.active != nil {
			s.stopActive(ctx)
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
		}

		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parsed, err := command.Parse(line, reg)
		if err != nil {
			s.fail("Parse error: %v", err)
			continue
		}
		if parsed.Name == "" {
			continue
		}

		s.checkConnection(ctx)
		if s.handle(ctx, parsed) {
			return nil
		}
		if s.active != nil {
			s.warn("Reading messages... press Enter or Ctrl+C to stop.")
		}

		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			hinter.termWidth = w
		}
	}
}
