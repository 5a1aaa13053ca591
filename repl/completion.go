package repl

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/terminal"
	"grol.io/rpncalc/trie"
)

// AutoComplete completes the word before the cursor from known words.
type AutoComplete struct {
	Trie *trie.Trie
}

func NewCompletion(words ...string) *AutoComplete {
	return &AutoComplete{trie.New(words...)}
}

func (a *AutoComplete) Add(words ...string) {
	for _, w := range words {
		a.Trie.Insert(w)
	}
}

func (a *AutoComplete) AutoComplete() terminal.AutoCompleteCallback {
	return func(t *terminal.Terminal, line string, pos int, key rune) (newLine string, newPos int, ok bool) {
		if key != '\t' {
			return // only tab for now
		}
		return a.Complete(t.Out, line, pos)
	}
}

// Complete extends the word ending at pos to the longest common prefix of
// its completions, listing them on out when there are several.
func (a *AutoComplete) Complete(out io.Writer, line string, pos int) (newLine string, newPos int, ok bool) {
	start := strings.LastIndexAny(line[:pos], " \t") + 1
	prefix := line[start:pos]
	if prefix == "" {
		return
	}
	l, words := a.Trie.PrefixAll(prefix)
	if len(words) == 0 {
		return
	}
	if len(words) > 1 {
		fmt.Fprintln(out, "One of:", strings.Join(words, " "))
	}
	return line[:start] + words[0][:l] + line[pos:], start + l, true
}
