package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/cosmez/rediscli-go/internal/command"
	"github.com/cosmez/rediscli-go/internal/conn"
	"github.com/cosmez/rediscli-go/internal/exec"
	"github.com/cosmez/rediscli-go/internal/output"
	"github.com/cosmez/rediscli-go/internal/serializer"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const replyTimeout = 5 * time.Second

// target is where a session connects.
type target struct {
	host, port, user, pass string
}

func (t target) addr() string { return net.JoinHostPort(t.host, t.port) }

// session owns the live connection and the executor that may still be
// streaming on it. Only the input goroutine touches its fields.
type session struct {
	log *slog.Logger
	reg *command.Registry

	out       io.Writer     // messages and pipe output
	sink      output.Sink   // formatted replies
	prompt    io.ReadWriter // questions asked while a command runs
	ask       bool          // confirm dangerous commands
	page      int           // SAFEKEYS entries per page
	onConnect func(target)  // refreshes the prompt after (re)connecting

	target     target
	conn       *conn.Connection
	dispatcher *exec.Dispatcher
	active     exec.Executor
}

func (s *session) connect(ctx context.Context, t target) error {
	c, err := conn.Connect(ctx, t.host, t.port, t.user, t.pass, conn.WithLogger(s.log))
	if err != nil {
		return err
	}
	if s.conn != nil {
		s.conn.Close()
	}

	s.conn = c
	s.target = t
	s.mergeServerCommands(ctx)
	c.Bind(s.reg.ServerCommandNames()...)
	s.dispatcher = exec.NewDispatcher(c, s.sink, exec.WithLogger(s.log))

	s.log.Info("connected", "addr", t.addr(), "version", c.ServerInfo["redis_version"])
	if s.onConnect != nil {
		s.onConnect(t)
	}
	return nil
}

// mergeServerCommands adds the server's COMMAND list to the registry for
// autocomplete and dedicated operations. Failures are non-fatal.
func (s *session) mergeServerCommands(ctx context.Context) {
	cmds, err := s.conn.FetchServerCommands(ctx)
	if err != nil {
		s.warn("Warning: Could not fetch server commands: %v", err)
		return
	}
	if cmds != nil {
		s.reg.MergeServerCommands(cmds)
	}
}

func (s *session) close() {
	if ex := s.active; ex != nil {
		s.active = nil
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		ex.Shutdown(ctx)
		cancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// handle runs one parsed line. It reports true when the user asked to quit.
func (s *session) handle(ctx context.Context, parsed *command.ParsedCommand) (quit bool) {
	switch parsed.Name {
	case "EXIT":
		return true
	case "CLEAR":
		fmt.Fprint(s.out, "\033[2J\033[H")
	case "HELP":
		s.help(parsed.Args)
	case "CONNECT":
		s.handleConnect(ctx, parsed.Args)
	case "SAFEKEYS":
		s.safeKeys(ctx, parsed.Args)
	case "VIEW":
		if view, ok := s.resolveView(ctx, parsed); ok {
			s.execute(ctx, view)
		}
	case "EXPORT":
		s.export(ctx, parsed)
	default:
		s.execute(ctx, parsed)
	}
	return false
}

// execute sends a store command through the dispatcher. Streaming
// executors are kept in s.active until stopActive.
func (s *session) execute(ctx context.Context, parsed *command.ParsedCommand, extra ...exec.Option) exec.Status {
	if s.ask && s.reg.IsDangerous(parsed.Name) && !s.confirmDangerous(parsed.Name) {
		s.warn("Aborted.")
		return exec.Completed
	}

	var opts []exec.Option
	if parsed.Pipe != "" {
		opts = append(opts, exec.WithSink(output.NewPipeSink(s.out, parsed.Pipe)))
	}
	if parsed.Modifier != "" {
		ser, err := serializer.Get(parsed.Modifier)
		if err != nil {
			s.fail("Serializer error: %v", err)
			return exec.Completed
		}
		opts = append(opts, exec.WithDecoder(ser))
	}
	opts = append(opts, extra...)

	ex, err := s.dispatcher.Create(parsed.Tokens(), opts...)
	if err != nil {
		s.fail("%v", err)
		return exec.Completed
	}

	runCtx := ctx
	if !s.reg.IsBlocking(parsed.Name) {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, replyTimeout)
		defer cancel()
	}

	status := ex.Run(runCtx)
	if status == exec.StillActive {
		s.active = ex
	}
	return status
}

// stopActive shuts the streaming executor down. A connection in monitor
// mode cannot leave it, so it is replaced.
func (s *session) stopActive(ctx context.Context) {
	if s.active == nil {
		return
	}
	ex := s.active
	s.active = nil

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	if err := ex.Shutdown(ctx); err != nil {
		s.warn("Warning: %v", err)
	}
	if ex.Mode() == exec.Monitor {
		if err := s.connect(ctx, s.target); err != nil {
			s.fail("Reconnect failed: %v", err)
		}
	}
}

func (s *session) confirmDangerous(name string) bool {
	if name == "KEYS" {
		fmt.Fprintln(s.out, color.CyanString("Hint: You can execute SAFEKEYS or SCAN instead."))
	}
	return output.Confirm(s.prompt, s.prompt,
		fmt.Sprintf("The command %s is considered dangerous to execute, execute anyway?", name))
}

func (s *session) help(args []string) {
	if len(args) == 0 {
		s.warn("Usage: HELP <command> | HELP @<group>")
		fmt.Fprintln(s.out, "Groups: @"+strings.Join(s.reg.Groups(), ", @"))
		return
	}

	if strings.HasPrefix(args[0], "@") {
		docs := s.reg.Group(args[0])
		if len(docs) == 0 {
			s.fail("Unknown group: %s", args[0])
			return
		}
		renderGroup(s.out, docs)
		return
	}

	name := strings.ToUpper(strings.Join(args, " "))
	doc := s.reg.Get(name)
	if doc == nil && len(args) > 1 {
		doc = s.reg.Get(args[0])
	}
	if doc == nil {
		// a partial name lists every command it starts
		if matches := s.reg.Search(name); len(matches) > 0 {
			renderGroup(s.out, matches)
			return
		}
		s.fail("Unknown command: %s", name)
		return
	}
	fmt.Fprintln(s.out, color.CyanString("%s %s", doc.Command, doc.Arguments))
	if doc.Summary != "" {
		fmt.Fprintln(s.out, doc.Summary)
	}
	if doc.Since != "" {
		fmt.Fprintln(s.out, color.BlueString("Since: %s", doc.Since))
	}
	if doc.Group != "" {
		fmt.Fprintln(s.out, color.BlueString("Group: @%s", doc.Group))
	}
}

func renderGroup(w io.Writer, docs []command.CommandDoc) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Command", "Arguments", "Summary"})
	table.SetBorder(true)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	for _, doc := range docs {
		table.Append([]string{doc.Command, doc.Arguments, doc.Summary})
	}
	table.Render()
}

func (s *session) handleConnect(ctx context.Context, args []string) {
	if len(args) < 2 {
		s.fail("Usage: CONNECT <host> <port> [user] [pass]")
		return
	}

	t := target{host: args[0], port: args[1]}
	if len(args) == 3 {
		t.pass = args[2]
	} else if len(args) >= 4 {
		t.user = args[2]
		t.pass = args[3]
	}

	if err := s.connect(ctx, t); err != nil {
		s.fail("Connection failed: %v", err)
		return
	}
	printBanner(s.out, s.conn.ServerInfo)
}

// resolveView turns "VIEW key" into the read command for the key's type,
// keeping the codec and pipe of the original line.
func (s *session) resolveView(ctx context.Context, parsed *command.ParsedCommand) (*command.ParsedCommand, bool) {
	if len(parsed.Args) == 0 {
		s.fail("Usage: VIEW <key>")
		return nil, false
	}
	key := parsed.Args[0]

	typ, err := s.conn.KeyType(ctx, key)
	if err != nil {
		s.fail("Error: %v", err)
		return nil, false
	}
	if typ == "none" {
		s.warn("Key not found")
		return nil, false
	}
	tokens, err := conn.ViewTokens(typ, key)
	if err != nil {
		s.fail("Error: %v", err)
		return nil, false
	}

	return &command.ParsedCommand{
		Text:     parsed.Text,
		Name:     tokens[0],
		Args:     tokens[1:],
		Modifier: parsed.Modifier,
		Pipe:     parsed.Pipe,
		Doc:      s.reg.Get(tokens[0]),
	}, true
}

// export runs a command into a file. The line's codec applies to the
// exported command; pipes do not.
func (s *session) export(ctx context.Context, parsed *command.ParsedCommand) {
	args := parsed.Args
	if len(args) < 2 {
		s.fail("Usage: EXPORT <filename> <command> [args...]")
		return
	}
	filename := args[0]

	sub, err := command.Parse(strings.Join(args[1:], " "), s.reg)
	if err != nil {
		s.fail("Parse error: %v", err)
		return
	}
	if parsed.Pipe != "" {
		s.fail("EXPORT does not support pipes")
		return
	}
	if sub.Modifier == "" {
		sub.Modifier = parsed.Modifier
	}
	if sub.Name == "VIEW" {
		view, ok := s.resolveView(ctx, sub)
		if !ok {
			return
		}
		sub = view
	}
	if exec.Classify(sub.Name).Streaming() {
		s.fail("Cannot export %s: it does not end on its own", sub.Name)
		return
	}

	file, err := output.NewFileSink(filename, s.out)
	if err != nil {
		s.fail("Export failed: %v", err)
		return
	}
	s.execute(ctx, sub, exec.WithSink(file))

	lines, err := file.Close()
	if err != nil {
		s.fail("Export failed: %v", err)
		return
	}
	fmt.Fprintln(s.out, color.GreenString("Exported %d lines to %s", lines, filename))
}

func (s *session) safeKeys(ctx context.Context, args []string) {
	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}
	n := output.PrintPaged(s.prompt, s.prompt, s.conn.SafeKeys(ctx, pattern), s.page)
	if n == 0 {
		fmt.Fprintln(s.out, color.HiBlackString("(empty array)"))
	}
}

// checkConnection replaces a connection the server has dropped.
func (s *session) checkConnection(ctx context.Context) {
	err := s.conn.Err()
	if err == nil {
		return
	}
	s.warn("Connection lost (%v), reconnecting to %s", err, s.target.addr())
	if err := s.connect(ctx, s.target); err != nil {
		s.fail("Reconnect failed: %v", err)
	}
}

func (s *session) warn(format string, a ...any) {
	fmt.Fprintln(s.out, color.YellowString(format, a...))
}

func (s *session) fail(format string, a ...any) {
	fmt.Fprintln(s.out, color.RedString(format, a...))
}

// bannerLines summarizes the INFO reply the way the prompt banner shows it.
func bannerLines(info map[string]string) []string {
	if info == nil {
		return nil
	}
	if errStr, ok := info["error"]; ok {
		return []string{color.YellowString("Warning: Could not fetch server info: %s", errStr)}
	}

	mode := info["redis_mode"]
	if mode == "" {
		mode = "standalone"
	}
	memTotal := info["total_system_memory_human"]
	if memTotal == "" {
		memTotal = "Unknown"
	}

	lines := []string{
		color.GreenString("Connected to Redis %s %s", info["redis_version"], mode),
		color.CyanString("Memory: %s / %s", info["used_memory_human"], memTotal),
		color.CyanString("Connected Clients: %s", info["connected_clients"]),
	}

	var dbs []string
	for k := range info {
		if strings.HasPrefix(k, "db") {
			dbs = append(dbs, k)
		}
	}
	sort.Strings(dbs)
	for _, db := range dbs {
		// e.g. db0:keys=150,expires=0,avg_ttl=0
		first, _, _ := strings.Cut(info[db], ",")
		if _, keys, ok := strings.Cut(first, "="); ok {
			lines = append(lines, color.CyanString("%s (%s Total Keys)", db, keys))
		}
	}
	return lines
}

func printBanner(w io.Writer, info map[string]string) {
	for _, line := range bannerLines(info) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}
