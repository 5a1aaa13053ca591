package ui

import (
	"fmt"
	"strings"

	"fortio.org/log"
	"github.com/cockroachdb/apd/v3"
	"github.com/rivo/uniseg"
	"grol.io/rpncalc/eval"
	"grol.io/rpncalc/number"
)

// FormatStack is the one line form of the stack, bottom first.
func FormatStack(values []*apd.Decimal) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = number.Format(v)
	}
	return "[" + strings.Join(s, " ") + "]"
}

// pad right aligns to width display columns.
func pad(s string, width int) string {
	if w := uniseg.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Panel renders the debugger view: position with the source line and a
// caret, the stack top first, the variables innermost first.
func Panel(info eval.DebugInfo) string {
	var b strings.Builder
	if info.Err != nil {
		fmt.Fprintf(&b, "%s-- stopped at line %d:%d: %v%s\n", log.Colors.Red, info.Line, info.Column, info.Err, log.Colors.Reset)
	} else {
		fmt.Fprintf(&b, "-- line %d:%d, depth %d, next %s%s%s\n",
			info.Line, info.Column, info.Depth, log.Colors.Cyan, info.Token, log.Colors.Reset)
	}
	src := strings.TrimRight(info.Source, " \t\r")
	b.WriteString(src)
	b.WriteByte('\n')
	col := min(max(info.Column-1, 0), len(info.Source))
	b.WriteString(strings.Repeat(" ", uniseg.StringWidth(info.Source[:col])))
	b.WriteString("^\n")
	fmt.Fprintf(&b, "stack (%d):\n", len(info.Stack))
	for i := len(info.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  %3d: %s\n", len(info.Stack)-1-i, number.Format(info.Stack[i]))
	}
	if len(info.Vars) == 0 {
		return b.String()
	}
	width := 0
	for _, e := range info.Vars {
		width = max(width, uniseg.StringWidth(e.Label()))
	}
	b.WriteString("variables:\n")
	for _, e := range info.Vars {
		fmt.Fprintf(&b, "  %s = %s  (scope %d)\n", pad(e.Label(), width), number.Format(e.Value), e.Depth)
	}
	return b.String()
}
