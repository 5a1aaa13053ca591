package token

import "fortio.org/sets"

// Info enables introspection of known keywords and operators.
type RPNInfo struct {
	Keywords  sets.Set[string]
	Operators sets.Set[string]
	// Blocks are the block opening and closing keywords.
	Blocks sets.Set[string]
}

var info RPNInfo

func init() {
	info = RPNInfo{
		Keywords:  sets.New[string](),
		Operators: sets.New[string](),
		Blocks:    sets.New[string](),
	}
	for k, t := range keywords {
		info.Keywords.Add(k)
		switch t { //nolint:exhaustive // blocks only.
		case IF, ELSE, ENDIF, WHILE, ENDWHILE, FUNDEF, ENDFUNDEF:
			info.Blocks.Add(k)
		}
	}
	for o := range operators {
		info.Operators.Add(o)
	}
}

func Info() RPNInfo {
	return info
}
