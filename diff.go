package diffable

// editScript is the identity-level structural difference between two
// sequences. Deletions index the old sequence, insertions the new one, both
// ascending. Removing the deleted positions from the old sequence and then
// inserting new[i] at position i for each insertion index, in ascending
// order, reproduces the new sequence exactly.
type editScript struct {
	deletions  []int
	insertions []int
}

func (sc editScript) empty() bool {
	return len(sc.deletions) == 0 && len(sc.insertions) == 0
}

// diffSlices computes a shortest edit script between old and new using the
// greedy forward variant of the Myers O((N+M)D) algorithm. Elements are
// compared by identity only; both inputs are assumed duplicate-free.
//
// The script is deterministic: when two candidate paths are equally short
// the deletion branch wins, so edits resolve leftmost-first.
func diffSlices[T comparable](old, new []T) editScript {
	n, m := len(old), len(new)
	if n == 0 && m == 0 {
		return editScript{}
	}

	// v[offset+k] holds the furthest x reached on diagonal k. trace keeps
	// the state before each depth so the path can be walked back.
	max := n + m
	offset := max
	v := make([]int, 2*max+2)
	var trace [][]int

	depth := 0
search:
	for d := 0; d <= max; d++ {
		depth = d
		snap := make([]int, len(v))
		copy(snap, v)
		trace = append(trace, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && old[x] == new[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	// Walk the trace back from (n, m), emitting one edit per depth.
	var sc editScript
	x, y := n, m
	for d := depth; d > 0; d-- {
		prev := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && prev[offset+k-1] < prev[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
		}
		if x == prevX {
			sc.insertions = append(sc.insertions, prevY)
		} else {
			sc.deletions = append(sc.deletions, prevX)
		}
		x, y = prevX, prevY
	}

	reverseInts(sc.deletions)
	reverseInts(sc.insertions)
	return sc
}

// applyScript replays an edit script produced by diffSlices(old, new) over
// old. The result equals new; the round-trip tests and transaction
// verification rely on this.
func applyScript[T comparable](old, new []T, sc editScript) []T {
	deleted := make(map[int]struct{}, len(sc.deletions))
	for _, i := range sc.deletions {
		deleted[i] = struct{}{}
	}
	out := make([]T, 0, len(old)-len(sc.deletions)+len(sc.insertions))
	for i, v := range old {
		if _, ok := deleted[i]; !ok {
			out = append(out, v)
		}
	}
	for _, i := range sc.insertions {
		out = insertAt(out, i, new[i])
	}
	return out
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
