// Package parser turns a raw command line into a pipeline of command
// descriptors. It understands pipes, <, > and >> redirections and a trailing
// & marker. There is no quoting or escaping support.
package parser

import "strings"

// MaxStages bounds the number of piped segments in a single line.
const MaxStages = 32

// Builtin identifies a shell builtin, resolved once at parse time so the
// dispatcher can switch on a tag instead of comparing strings per lookup.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinCd
	BuiltinPwd
	BuiltinExit
	BuiltinJobs
	BuiltinFg
	BuiltinBg
	BuiltinKill
	BuiltinHistory
)

var builtinNames = map[string]Builtin{
	"cd":      BuiltinCd,
	"pwd":     BuiltinPwd,
	"exit":    BuiltinExit,
	"jobs":    BuiltinJobs,
	"fg":      BuiltinFg,
	"bg":      BuiltinBg,
	"kill":    BuiltinKill,
	"history": BuiltinHistory,
}

// Command is one pipeline stage: the argument vector plus optional
// redirection targets. Args is empty only for a no-op stage.
type Command struct {
	Args    []string
	Infile  string // "<" target, empty if none
	Outfile string // ">" or ">>" target, empty if none
	Append  bool   // true for ">>"
	Builtin Builtin
}

// Pipeline is an ordered list of stages from one command line.
type Pipeline struct {
	Stages     []Command
	Background bool
	Line       string // original text, kept for job display
}

// Split parses a full command line into a Pipeline.
//
// A redirection operator with no following filename is silently dropped;
// this mirrors long-standing behavior and is covered by a test rather than
// "fixed". A builtin name is only tagged when it is the sole stage, so a
// builtin in the middle of a pipeline falls through to external lookup.
func Split(line string) Pipeline {
	p := Pipeline{Line: line}

	text := strings.TrimSpace(line)
	if strings.HasSuffix(text, "&") {
		p.Background = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "&"))
	}

	for _, segment := range strings.Split(text, "|") {
		if len(p.Stages) == MaxStages {
			break
		}
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		p.Stages = append(p.Stages, parseSegment(segment))
	}

	if len(p.Stages) == 1 && len(p.Stages[0].Args) > 0 {
		p.Stages[0].Builtin = builtinNames[p.Stages[0].Args[0]]
	}
	return p
}

func parseSegment(segment string) Command {
	var cmd Command
	tokens := strings.Fields(segment)
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "<":
			if i+1 < len(tokens) {
				cmd.Infile = tokens[i+1]
				i++
			}
		case ">":
			if i+1 < len(tokens) {
				cmd.Outfile = tokens[i+1]
				cmd.Append = false
				i++
			}
		case ">>":
			if i+1 < len(tokens) {
				cmd.Outfile = tokens[i+1]
				cmd.Append = true
				i++
			}
		default:
			cmd.Args = append(cmd.Args, tokens[i])
		}
	}
	return cmd
}
