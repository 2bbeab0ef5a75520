package match

// Approximate search: semi-global edit distance (free leading and trailing
// text, full pattern). Consecutive end positions within budget form one
// run; each run reports its cheapest end, so an exact occurrence is seen
// as a single cost-0 hit rather than a cluster of cost-1 neighbours.

type fuzzyScratch struct {
	col  []int
	row  []int
	prev []int
}

// fuzzyScan calls visit(end, cost) for the best end of every run of ends
// whose cost is <= k. visit returns false to stop early.
func (fs *fuzzyScratch) scan(pat, text []byte, k int, visit func(end, cost int) bool) {
	m := len(pat)
	if cap(fs.col) < m+1 {
		fs.col = make([]int, m+1)
	}
	col := fs.col[:m+1]
	for i := range col {
		col[i] = i
	}

	inRun := false
	bestEnd, bestCost := 0, 0
	flush := func() bool {
		inRun = false
		return visit(bestEnd, bestCost)
	}

	for j := 1; j <= len(text); j++ {
		c := text[j-1]
		diag := col[0] // D[0][j-1] == 0
		for i := 1; i <= m; i++ {
			up := col[i] // D[i][j-1]
			v := diag
			if pat[i-1] != c {
				v++
			}
			if up+1 < v {
				v = up + 1
			}
			if col[i-1]+1 < v {
				v = col[i-1] + 1
			}
			diag = up
			col[i] = v
		}
		cost := col[m]
		switch {
		case cost <= k && !inRun:
			inRun, bestEnd, bestCost = true, j, cost
		case cost <= k && cost < bestCost:
			bestEnd, bestCost = j, cost
		case cost > k && inRun:
			if !flush() {
				return
			}
		}
	}
	if inRun {
		flush()
	}
}

// start finds the leftmost start s such that the edit distance between pat
// and text[s:end] equals cost.
func (fs *fuzzyScratch) start(pat, text []byte, end, cost, k int) int {
	lo := max(0, end-len(pat)-k)
	hi := min(end, end-len(pat)+k)
	for s := lo; s <= hi; s++ {
		if fs.distance(pat, text[s:end]) == cost {
			return s
		}
	}
	return max(0, end-len(pat))
}

// distance is the global edit distance between a and b.
func (fs *fuzzyScratch) distance(a, b []byte) int {
	n := len(b)
	if cap(fs.row) < n+1 {
		fs.row = make([]int, n+1)
		fs.prev = make([]int, n+1)
	}
	prev, row := fs.prev[:n+1], fs.row[:n+1]
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= n; j++ {
			v := prev[j-1]
			if a[i-1] != b[j-1] {
				v++
			}
			if prev[j]+1 < v {
				v = prev[j] + 1
			}
			if row[j-1]+1 < v {
				v = row[j-1] + 1
			}
			row[j] = v
		}
		prev, row = row, prev
	}
	return prev[n]
}
