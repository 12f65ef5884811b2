package output

import "github.com/fatih/color"

// ColorKind selects a palette entry for Colorize.
type ColorKind int

const (
	ColorError ColorKind = iota
	ColorWarning
	ColorInfo
	ColorNil
	ColorInteger
	ColorIndex
)

var palette = map[ColorKind]func(a ...interface{}) string{
	ColorError:   color.New(color.FgRed).SprintFunc(),
	ColorWarning: color.New(color.FgYellow).SprintFunc(),
	ColorInfo:    color.New(color.FgCyan).SprintFunc(),
	ColorNil:     color.New(color.FgHiBlack).SprintFunc(),
	ColorInteger: color.New(color.FgHiGreen).SprintFunc(),
	ColorIndex:   color.New(color.FgHiBlack).SprintFunc(),
}

// Colorize wraps text in the ANSI sequence for kind. It honors
// color.NoColor, so redirected output stays plain.
func Colorize(kind ColorKind, text string) string {
	paint, ok := palette[kind]
	if !ok {
		return text
	}
	return paint(text)
}

// ErrorReply renders a failed invocation as "(error) <message>".
func ErrorReply(message string) Reply {
	return Reply{Kind: KindError, Text: Colorize(ColorError, "(error) "+message)}
}
