package repl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fortio.org/log"
	"grol.io/rpncalc/config"
	"grol.io/rpncalc/infix"
	"grol.io/rpncalc/stack"
	"grol.io/rpncalc/ui"
)

var ErrUsage = errors.New("usage")

type command struct {
	args string // usage of the arguments, empty when none.
	help string
	// fn gets the raw text after the command name.
	fn func(s *Session, ctx context.Context, rest string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {help: "this help", fn: (*Session).help},
		"quit":      {help: "exit, also Ctrl-D"},
		"infix":     {args: "EXPR", help: "convert EXPR to postfix, print and run it", fn: (*Session).infix},
		"debug":     {args: "SCRIPT", help: "run SCRIPT in the debugger", fn: (*Session).debug},
		"stack":     {help: "show the stack, top first", fn: (*Session).showStack},
		"history":   {help: "show the stack operations log", fn: (*Session).showHistory},
		"undo":      {help: "replay the stack log without its last operation", fn: (*Session).undo},
		"lines":     {help: "show the lines entered", fn: (*Session).showLines},
		"functions": {help: "list the user functions", fn: (*Session).showFunctions},
		"forget":    {args: "NAME...", help: "delete user functions", fn: (*Session).forget},
		"save":      {args: "FILE", help: "save the user functions", fn: (*Session).save},
		"load":      {args: "FILE", help: "load user functions", fn: (*Session).load},
		"plot":      {args: "FILE", help: "save the canvas as .png or .bmp", fn: (*Session).savePlot},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for k := range commands {
		names = append(names, ":"+k)
	}
	slices.Sort(names)
	return names
}

// command runs a ':' line (without the ':'), true means quit.
func (s *Session) command(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if name == "q" || name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(s.out, "%sunknown command :%s%s, try :help\n", log.Colors.Red, name, log.Colors.Reset)
		return false
	}
	if cmd.fn == nil {
		return true
	}
	err := cmd.fn(s, ctx, rest)
	if errors.Is(err, ErrUsage) {
		fmt.Fprintf(s.out, "usage: :%s %s\n", name, cmd.args)
		return false
	}
	if err != nil {
		fmt.Fprintf(s.out, "%s:%s: %v%s\n", log.Colors.Red, name, err, log.Colors.Reset)
	}
	return false
}

// fields splits arguments on blanks. Single or double quotes group words,
// a backslash escapes the next character except inside single quotes.
func fields(line string) ([]string, error) {
	var (
		res     []string
		cur     strings.Builder
		quote   rune
		escape  bool
		started bool
	)
	for _, r := range line {
		switch {
		case escape:
			cur.WriteRune(r)
			escape = false
		case r == '\\' && quote != '\'':
			escape = true
			started = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				res = append(res, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if escape {
		return nil, errors.New("trailing backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("missing closing %c", quote)
	}
	if started {
		res = append(res, cur.String())
	}
	return res, nil
}

// oneFile is the single file argument of rest.
func oneFile(rest string) (string, error) {
	args, err := fields(rest)
	if err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", ErrUsage
	}
	return config.ExpandHome(args[0]), nil
}

func (s *Session) help(context.Context, string) error {
	fmt.Fprintln(s.out, "Enter numbers and script words, or one of:")
	for _, name := range commandNames() {
		cmd := commands[name[1:]]
		usage := name
		if cmd.args != "" {
			usage += " " + cmd.args
		}
		fmt.Fprintf(s.out, "  %-18s %s\n", usage, cmd.help)
	}
	fmt.Fprintln(s.out, "Debugger commands:", ui.DebugHelp)
	return nil
}

func (s *Session) infix(ctx context.Context, rest string) error {
	if rest == "" {
		return ErrUsage
	}
	res, err := infix.Convert(rest)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, res.Postfix)
	_ = s.run(ctx, res.Script, false)
	s.printStack()
	return nil
}

func (s *Session) debug(ctx context.Context, rest string) error {
	if rest == "" {
		return ErrUsage
	}
	_ = s.run(ctx, rest, true)
	s.printStack()
	return nil
}

func (s *Session) showStack(context.Context, string) error {
	values := s.stack.Values()
	if e := s.stack.Entry(); e != "" {
		fmt.Fprintf(s.out, "  edit: %s\n", e)
	}
	for i := len(values) - 1; i >= 0; i-- {
		fmt.Fprintf(s.out, "  %3d: %s\n", len(values)-1-i, ui.FormatStack(values[i:i+1]))
	}
	return nil
}

func (s *Session) showHistory(context.Context, string) error {
	for i, l := range s.stack.History() {
		fmt.Fprintf(s.out, "%4d  %s\n", i+1, l)
	}
	return nil
}

func (s *Session) undo(context.Context, string) error {
	h := s.stack.History()
	if len(h) == 0 {
		return errors.New("nothing to undo")
	}
	m, err := stack.Replay(h[:len(h)-1])
	if err != nil {
		return err
	}
	s.stack = m
	s.engine.SetStack(m)
	s.printStack()
	return nil
}

func (s *Session) showLines(context.Context, string) error {
	for i, l := range s.history {
		fmt.Fprintf(s.out, "%4d  %s\n", i+1, l)
	}
	return nil
}

func (s *Session) showFunctions(context.Context, string) error {
	for _, name := range s.functionNames() {
		body, _ := s.funcs.Lookup(name)
		fmt.Fprintf(s.out, "%s%s%s (line %d): %s\n", log.Colors.Green, name, log.Colors.Reset,
			body.Line, strings.Join(strings.Fields(body.Text), " "))
	}
	return nil
}

func (s *Session) forget(_ context.Context, rest string) error {
	names, err := fields(rest)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return ErrUsage
	}
	for _, n := range names {
		if _, ok := s.funcs.Lookup(n); !ok {
			fmt.Fprintf(s.out, "no function %q\n", n)
			continue
		}
		s.funcs.Delete(n)
	}
	s.nfuncs = s.funcs.Len()
	return nil
}

func (s *Session) save(_ context.Context, rest string) error {
	name, err := oneFile(rest)
	if err != nil {
		return err
	}
	return s.funcs.SaveFile(name)
}

func (s *Session) load(_ context.Context, rest string) error {
	name, err := oneFile(rest)
	if err != nil {
		return err
	}
	if err = s.funcs.LoadFile(name); err != nil {
		return err
	}
	s.nfuncs = s.funcs.Len()
	s.complete.Add(s.functionNames()...)
	return nil
}

func (s *Session) savePlot(_ context.Context, rest string) error {
	name, err := oneFile(rest)
	if err != nil {
		return err
	}
	if s.opts.Canvas == nil {
		return errors.New("no canvas")
	}
	return s.opts.Canvas.Save(name)
}
