package liveview

// history is a ring of the most recently sent edit frames, kept so a
// client that reconnects can be sent the batches it missed. It is guarded
// by the owning session's mutex.
type history struct {
	frames [][]byte
	seqs   []uint64
	head   int
	count  int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 100
	}
	return &history{
		frames: make([][]byte, capacity),
		seqs:   make([]uint64, capacity),
	}
}

// add stores the encoded frame of batch seq. Seqs must increase by one.
func (h *history) add(seq uint64, frame []byte) {
	h.frames[h.head] = frame
	h.seqs[h.head] = seq
	h.head = (h.head + 1) % len(h.frames)
	if h.count < len(h.frames) {
		h.count++
	}
}

// since returns the frames of batches after seq, oldest first. ok is false
// if some of them were already overwritten.
func (h *history) since(seq, last uint64) (frames [][]byte, ok bool) {
	if seq == last {
		return nil, true
	}
	if seq > last || last-seq > uint64(h.count) {
		return nil, false
	}
	n := int(last - seq)
	for i := n; i > 0; i-- {
		idx := (h.head - i + len(h.frames)) % len(h.frames)
		if h.seqs[idx] != last-uint64(i)+1 {
			return nil, false
		}
		frames = append(frames, h.frames[idx])
	}
	return frames, true
}
