package match

/*
Aho–Corasick automaton over all literal patterns.

- buildAC(pats) builds a trie with failure links over a compressed byte
  alphabet (only bytes that occur in some pattern get their own class).
- scan(seq, visit) reports (endPos, patternIdx) for every occurrence.
*/

// acNode is one state in the automaton.
type acNode struct {
	fail int32
	out  []int32 // pattern indexes that end at this state
}

type acAutomaton struct {
	class  [256]uint8 // byte → class; 0 is "not in any pattern"
	nclass int
	next   []int32 // len(nodes)*nclass; 0 => absent (root is state 0)
	nodes  []acNode
	lens   []int
}

func (a *acAutomaton) edge(state int32, c uint8) int32 {
	return a.next[int(state)*a.nclass+int(c)]
}

func (a *acAutomaton) addNode() int32 {
	a.nodes = append(a.nodes, acNode{})
	a.next = append(a.next, make([]int32, a.nclass)...)
	return int32(len(a.nodes) - 1)
}

// buildAC constructs the automaton for pats.
func buildAC(pats [][]byte) *acAutomaton {
	a := &acAutomaton{lens: make([]int, len(pats))}
	a.nclass = 1
	for _, p := range pats {
		for _, b := range p {
			if a.class[b] == 0 {
				a.class[b] = uint8(a.nclass)
				a.nclass++
			}
		}
	}
	a.addNode() // state 0 = root

	// 1) Build trie edges
	for i, p := range pats {
		a.lens[i] = len(p)
		var cur int32
		for _, b := range p {
			c := a.class[b]
			if a.edge(cur, c) == 0 {
				n := a.addNode()
				a.next[int(cur)*a.nclass+int(c)] = n
			}
			cur = a.edge(cur, c)
		}
		a.nodes[cur].out = append(a.nodes[cur].out, int32(i))
	}

	// 2) BFS to set fail links and propagate outputs
	queue := make([]int32, 0, len(a.nodes))
	for c := 1; c < a.nclass; c++ {
		if child := a.edge(0, uint8(c)); child != 0 {
			queue = append(queue, child)
		}
	}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for c := 1; c < a.nclass; c++ {
			s := a.edge(r, uint8(c))
			if s == 0 {
				continue
			}
			queue = append(queue, s)
			f := a.nodes[r].fail
			for f > 0 && a.edge(f, uint8(c)) == 0 {
				f = a.nodes[f].fail
			}
			if t := a.edge(f, uint8(c)); t != 0 && t != s {
				f = t
			}
			a.nodes[s].fail = f
			if out := a.nodes[f].out; len(out) > 0 {
				a.nodes[s].out = append(a.nodes[s].out, out...)
			}
		}
	}
	return a
}

// scan calls visit(end, idx) for every occurrence ending at seq[end-1].
// visit returns false to stop early.
func (a *acAutomaton) scan(seq []byte, visit func(end int, idx int32) bool) {
	var state int32
	for i, b := range seq {
		c := a.class[b]
		if c == 0 {
			state = 0
			continue
		}
		for state > 0 && a.edge(state, c) == 0 {
			state = a.nodes[state].fail
		}
		state = a.edge(state, c)
		for _, idx := range a.nodes[state].out {
			if !visit(i+1, idx) {
				return
			}
		}
	}
}
