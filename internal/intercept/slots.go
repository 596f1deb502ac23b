package intercept

// slotTable is a sparse, index-stable collection of hooks.
// Vacated slots are reused lowest index first.
type slotTable[F any] struct {
	fns  []F
	live []bool
}

// slot is a live hook captured for one dispatch phase.
type slot[F any] struct {
	index int
	fn    F
}

// claim stores fn in the lowest free slot and returns its index.
func (t *slotTable[F]) claim(fn F) int {
	for i, used := range t.live {
		if !used {
			t.fns[i] = fn
			t.live[i] = true
			return i
		}
	}
	t.fns = append(t.fns, fn)
	t.live = append(t.live, true)
	return len(t.fns) - 1
}

// vacate frees the slot at index without shifting others.
// Returns false if the slot holds no hook.
func (t *slotTable[F]) vacate(index int) bool {
	if index < 0 || index >= len(t.live) || !t.live[index] {
		return false
	}
	var zero F
	t.fns[index] = zero
	t.live[index] = false
	return true
}

// snapshot returns the live hooks in ascending slot order.
func (t *slotTable[F]) snapshot() []slot[F] {
	if len(t.fns) == 0 {
		return nil
	}
	out := make([]slot[F], 0, len(t.fns))
	for i, used := range t.live {
		if used {
			out = append(out, slot[F]{index: i, fn: t.fns[i]})
		}
	}
	return out
}

// count returns the number of live hooks.
func (t *slotTable[F]) count() int {
	n := 0
	for _, used := range t.live {
		if used {
			n++
		}
	}
	return n
}
