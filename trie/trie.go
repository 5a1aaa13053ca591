// Trie implements a byte trie data structure, used for keyword and
// function name completion.
// It is fast as it uses arrays instead of maps and no bound checks.
package trie // import "grol.io/rpncalc/trie"

type Trie struct {
	// Children of this node
	children [256]*Trie
	// This node itself is a valid leaf (end of a word) in addition having children.
	valid bool
	leaf  bool // Note really needed outside of debugging but with struct alignment it doesn't cost anything extra.
}

// Save some memory by having a shared end marker for leaves.
// Only one having "leaf" set to true.
var endMarker = &Trie{valid: true, leaf: true}

func NewTrie() *Trie {
	return &Trie{}
}

// New returns a trie holding all the words.
func New(words ...string) *Trie {
	t := NewTrie()
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

func (t *Trie) Insert(word string) {
	l := len(word)
	if l == 0 {
		return
	}
	for i := range l {
		char := word[i]
		valid := false
		switch t.children[char] {
		case endMarker:
			// This was a valid leaf before, propagate to the new children node
			valid = true
			fallthrough
		case nil:
			if i == l-1 {
				t.children[char] = endMarker // Shared for all leaves, saves memory.
			} else {
				t.children[char] = &Trie{valid: valid}
			}
		}
		t = t.children[char]
	}
	// Word that is a prefix of an already inserted one.
	t.valid = true
}

func (t *Trie) Contains(word string) bool {
	return t.Prefix(word).IsValid()
}

func (t *Trie) Prefix(word string) *Trie {
	for i := range len(word) {
		char := word[i]
		t = t.children[char]
		if t == nil {
			return nil
		}
	}
	return t
}

func (t *Trie) IsLeaf() bool {
	return t != nil && t.leaf
}

func (t *Trie) IsValid() bool {
	return t != nil && t.valid
}

// PrefixAll returns, in byte order, all the words starting with prefix
// and the length of their longest common prefix.
func (t *Trie) PrefixAll(prefix string) (int, []string) {
	n := t.Prefix(prefix)
	if n == nil {
		return 0, nil
	}
	buf := []byte(prefix)
	var words []string
	n.collect(buf, &words)
	if len(words) == 0 {
		return 0, nil
	}
	l := len(words[0])
	for _, w := range words[1:] {
		l = min(l, commonPrefix(words[0], w))
	}
	return l, words
}

func (t *Trie) collect(buf []byte, words *[]string) {
	if t.valid {
		*words = append(*words, string(buf))
	}
	if t.leaf {
		return
	}
	for c, child := range t.children {
		if child != nil {
			child.collect(append(buf, byte(c)), words)
		}
	}
}

func commonPrefix(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}
