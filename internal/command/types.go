package command

// ParsedCommand is one line of user input split into tokens, with the
// client-side modifiers already stripped.
type ParsedCommand struct {
	Text     string      // original input text
	Name     string      // upper-cased command name, empty if none
	Args     []string    // arguments after the name; SET values already encoded by Modifier
	Modifier string      // codec name e.g. "gzip", empty if none
	Pipe     string      // shell command after "|", empty if none
	Doc      *CommandDoc // documentation, nil if not found
}

// Tokens returns the name followed by the arguments, the form the
// execution engine consumes.
func (p *ParsedCommand) Tokens() []string {
	if p.Name == "" {
		return nil
	}
	tokens := make([]string, 0, len(p.Args)+1)
	tokens = append(tokens, p.Name)
	return append(tokens, p.Args...)
}

// CommandDoc is the documentation for a single Redis command.
type CommandDoc struct {
	Command   string `json:"command"`
	Summary   string `json:"summary"`
	Arguments string `json:"arguments"`
	Since     string `json:"since"`
	Group     string `json:"group"`
}

// ServerCommand is a command discovered from the Redis COMMAND reply.
// Defined here so conn can produce these and command can consume them
// without a circular import.
type ServerCommand struct {
	Name        string          // e.g. "CONFIG SET" (uppercased, pipe replaced with space)
	Arity       int64           // positive = exact arg count, negative = minimum
	ACLCats     []string        // e.g. ["@string", "@read", "@fast"]
	Subcommands []ServerCommand // recursive subcommands
}
