package lexer

import (
	"sync"

	"fortio.org/log"
	"github.com/dgryski/go-farm"
	"grol.io/rpncalc/token"
)

// Factory creates a fresh token source over a script text whose first line
// is `line` in the enclosing script.
type Factory interface {
	Source(input string, line int) TokenSource
}

// Plain is the Factory that lexes every time.
type Plain struct{}

func (Plain) Source(input string, line int) TokenSource {
	return NewAt(input, line)
}

type cacheKey struct {
	hash uint64
	line int
}

type cacheEntry struct {
	input  string
	tokens []token.Token
}

// Cache memoizes the token stream of each unique (text, first line) pair so
// loop bodies and function bodies that run many times are lexed once.
// The replayed stream is identical to what a fresh Lexer produces, errors included.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	max     int
	hits    int64
	misses  int64
}

// DefaultCacheSize is the number of distinct bodies kept, see NewCache.
const DefaultCacheSize = 256

// NewCache creates a cache holding at most max bodies; when full it starts over.
// A max <= 0 uses DefaultCacheSize.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &Cache{entries: make(map[cacheKey]cacheEntry), max: maxEntries}
}

func (c *Cache) Source(input string, line int) TokenSource {
	key := cacheKey{hash: farm.Hash64([]byte(input)), line: line}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.input == input {
		c.hits++
		return &replay{tokens: e.tokens}
	}
	c.misses++
	tokens := All(NewAt(input, line))
	if len(c.entries) >= c.max {
		log.LogVf("token cache full (%d entries), resetting", len(c.entries))
		clear(c.entries)
	}
	c.entries[key] = cacheEntry{input: input, tokens: tokens}
	return &replay{tokens: tokens}
}

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// All drains a token source up to and including EOF.
func All(src TokenSource) []token.Token {
	var tokens []token.Token
	for {
		t := src.NextToken()
		tokens = append(tokens, t)
		if t.Type == token.EOF {
			return tokens
		}
	}
}

type replay struct {
	tokens []token.Token
	next   int
}

func (r *replay) NextToken() token.Token {
	t := r.tokens[r.next]
	if r.next < len(r.tokens)-1 {
		r.next++
	}
	return t
}
