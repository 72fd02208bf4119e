package mask

// snapshot is a bit-packed copy of a layer, one bit per pixel.
type snapshot struct {
	bits []uint64
	n    int
}

func takeSnapshot(l *layer) snapshot {
	s := snapshot{bits: make([]uint64, (len(l.pix)+63)/64), n: len(l.pix)}
	for i, p := range l.pix {
		if p != unselected {
			s.bits[i>>6] |= 1 << (uint(i) & 63)
		}
	}
	return s
}

func (s snapshot) restore(l *layer) {
	for i := 0; i < s.n && i < len(l.pix); i++ {
		if s.bits[i>>6]&(1<<(uint(i)&63)) != 0 {
			l.pix[i] = selected
		} else {
			l.pix[i] = unselected
		}
	}
}

// history is a linear undo stack with a cursor. Committing after an undo
// discards everything beyond the cursor.
type history struct {
	entries []snapshot
	cursor  int
}

func (h *history) reset(initial snapshot) {
	h.entries = []snapshot{initial}
	h.cursor = 0
}

func (h *history) commit(s snapshot) {
	h.entries = append(h.entries[:h.cursor+1], s)
	h.cursor = len(h.entries) - 1
}

func (h *history) back() (snapshot, bool) {
	if h.cursor <= 0 {
		return snapshot{}, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

func (h *history) forward() (snapshot, bool) {
	if h.cursor >= len(h.entries)-1 {
		return snapshot{}, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}
