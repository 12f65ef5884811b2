package command

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed simple_commands.json
var commandsJSON []byte

// AppGroup is the documentation group of the client's own built-ins.
const AppGroup = "application"

// Registry holds the documentation for all known Redis commands plus the
// client built-ins, and the command classification sets used by the REPL.
type Registry struct {
	docs      []CommandDoc
	index     map[string]int // command name → index in docs slice
	dangerous map[string]bool
	blocking  map[string]bool
}

// NewRegistry loads the embedded command documentation.
func NewRegistry() (*Registry, error) {
	var docs []CommandDoc
	if err := json.Unmarshal(commandsJSON, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse embedded commands JSON: %w", err)
	}

	docs = append(docs,
		CommandDoc{Command: "EXIT", Summary: "Exit the application", Group: AppGroup},
		CommandDoc{Command: "CONNECT", Summary: "Connect to a Redis server", Arguments: "host port [user] [pass]", Group: AppGroup},
		CommandDoc{Command: "HELP", Summary: "Show help for a command or a command group", Arguments: "[command | @group]", Group: AppGroup},
		CommandDoc{Command: "CLEAR", Summary: "Clear the screen", Group: AppGroup},
		CommandDoc{Command: "SAFEKEYS", Summary: "Safely iterate over keys using SCAN", Arguments: "[pattern]", Group: AppGroup},
		CommandDoc{Command: "VIEW", Summary: "Show the value of a key whatever its type", Arguments: "key", Group: AppGroup},
		CommandDoc{Command: "EXPORT", Summary: "Write the reply of a command to a file", Arguments: "filename command [arg ...]", Group: AppGroup},
	)

	idx := make(map[string]int, len(docs))
	for i, doc := range docs {
		idx[doc.Command] = i
	}

	return &Registry{
		docs:  docs,
		index: idx,
		dangerous: toSet(
			"FLUSHDB", "FLUSHALL", "KEYS", "PEXPIRE", "DEL", "CONFIG",
			"SHUTDOWN", "BGREWRITEAOF", "BGSAVE", "SAVE", "SPOP", "SREM",
			"RENAME", "DEBUG",
		),
		blocking: toSet(
			"BLPOP", "BRPOP", "BLMOVE", "BRPOPLPUSH", "BZPOPMIN", "BZPOPMAX",
			"BLMPOP", "BZMPOP", "XREAD", "XREADGROUP", "WAIT",
		),
	}, nil
}

func toSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Get returns the documentation for a command, or nil if not found.
// Compound names such as "CLIENT INFO" are looked up as a whole.
func (r *Registry) Get(cmd string) *CommandDoc {
	if i, ok := r.index[strings.ToUpper(cmd)]; ok {
		return &r.docs[i]
	}
	return nil
}

// GetCommands returns the command names starting with prefix, for tab completion.
func (r *Registry) GetCommands(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var matches []string
	for _, doc := range r.docs {
		if strings.HasPrefix(doc.Command, prefix) {
			matches = append(matches, doc.Command)
		}
	}
	return matches
}

// Search returns the docs whose names start with prefix.
func (r *Registry) Search(prefix string) []CommandDoc {
	prefix = strings.ToUpper(prefix)
	var matches []CommandDoc
	for _, doc := range r.docs {
		if strings.HasPrefix(doc.Command, prefix) {
			matches = append(matches, doc)
		}
	}
	return matches
}

// Group returns the docs of one group (case-insensitive), sorted by name.
func (r *Registry) Group(name string) []CommandDoc {
	name = strings.ToLower(strings.TrimPrefix(name, "@"))
	var matches []CommandDoc
	for _, doc := range r.docs {
		if doc.Group == name {
			matches = append(matches, doc)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Command < matches[j].Command })
	return matches
}

// Groups lists every non-empty group name in sorted order.
func (r *Registry) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, doc := range r.docs {
		if doc.Group != "" && !seen[doc.Group] {
			seen[doc.Group] = true
			groups = append(groups, doc.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// ServerCommandNames returns the distinct top-level names of all Redis
// commands in the registry, leaving out the client built-ins. Compound
// entries contribute their first word.
func (r *Registry) ServerCommandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, doc := range r.docs {
		if doc.Group == AppGroup {
			continue
		}
		name, _, _ := strings.Cut(doc.Command, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// IsDangerous reports whether the command needs confirmation before it runs.
func (r *Registry) IsDangerous(cmd string) bool {
	return r.dangerous[strings.ToUpper(cmd)]
}

// IsBlocking reports whether the command may legitimately wait for a reply
// indefinitely, so no reply timeout should be applied.
func (r *Registry) IsBlocking(cmd string) bool {
	return r.blocking[strings.ToUpper(cmd)]
}

// MergeServerCommands adds commands discovered on the live server. Built-in
// docs win; unknown commands get a minimal entry for autocomplete.
func (r *Registry) MergeServerCommands(cmds []ServerCommand) {
	for _, sc := range cmds {
		r.mergeOne(sc)
		for _, sub := range sc.Subcommands {
			r.mergeOne(sub)
		}
	}
}

func (r *Registry) mergeOne(sc ServerCommand) {
	if _, exists := r.index[sc.Name]; exists {
		return
	}
	r.index[sc.Name] = len(r.docs)
	r.docs = append(r.docs, CommandDoc{
		Command:   sc.Name,
		Arguments: arityHint(sc.Arity),
		Group:     primaryACLGroup(sc.ACLCats),
	})
}

// arityHint builds an argument hint from a COMMAND arity. Arity counts the
// command name itself; negative values mean "at least".
func arityHint(arity int64) string {
	if arity == 0 || arity == 1 {
		return ""
	}
	n := int(arity) - 1
	variadic := false
	if arity < 0 {
		n = int(-arity) - 1
		variadic = true
	}

	parts := make([]string, 0, n+1)
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf("arg%d", i))
	}
	if variadic {
		parts = append(parts, "[arg ...]")
	}
	return strings.Join(parts, " ")
}

// primaryACLGroup picks the first domain category, skipping meta ones.
func primaryACLGroup(cats []string) string {
	skip := map[string]bool{
		"@read": true, "@write": true, "@fast": true, "@slow": true,
		"@admin": true, "@dangerous": true, "@keyspace": true,
	}
	for _, cat := range cats {
		if !skip[cat] && strings.HasPrefix(cat, "@") {
			return cat[1:]
		}
	}
	for _, cat := range cats {
		if cat == "@connection" || cat == "@pubsub" || cat == "@admin" {
			return cat[1:]
		}
	}
	return ""
}
