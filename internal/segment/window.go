package segment

// RingWindow is a fixed-capacity circular history of voiced/unvoiced flags.
// Slots start unvoiced and the oldest slot is always overwritten, matching
// the trigger math that treats an unfilled window as silence.
type RingWindow struct {
	flags  []bool
	idx    int
	voiced int
}

// NewRingWindow creates a window with the given capacity.
func NewRingWindow(capacity int) *RingWindow {
	return &RingWindow{flags: make([]bool, capacity)}
}

// Push records one classification, evicting the oldest slot.
func (w *RingWindow) Push(voiced bool) {
	if w.flags[w.idx] {
		w.voiced--
	}
	w.flags[w.idx] = voiced
	if voiced {
		w.voiced++
	}
	w.idx = (w.idx + 1) % len(w.flags)
}

// Voiced returns the number of voiced slots.
func (w *RingWindow) Voiced() int { return w.voiced }

// Unvoiced returns the number of unvoiced slots.
func (w *RingWindow) Unvoiced() int { return len(w.flags) - w.voiced }

// Cap returns the window capacity.
func (w *RingWindow) Cap() int { return len(w.flags) }

// Reset clears all slots to unvoiced.
func (w *RingWindow) Reset() {
	clear(w.flags)
	w.idx = 0
	w.voiced = 0
}

// PaddingBuffer is a bounded FIFO of recent pre-trigger frames. While no
// speech is confirmed the most recent frames are parked here so the
// utterance onset is not clipped when the trigger finally fires.
type PaddingBuffer struct {
	frames [][]byte
	cap    int
}

// NewPaddingBuffer creates a buffer holding at most capacity frames.
func NewPaddingBuffer(capacity int) *PaddingBuffer {
	return &PaddingBuffer{cap: capacity}
}

// Append adds a frame, evicting the oldest once the capacity is reached.
func (p *PaddingBuffer) Append(frame []byte) {
	if len(p.frames) == p.cap {
		copy(p.frames, p.frames[1:])
		p.frames = p.frames[:len(p.frames)-1]
	}
	p.frames = append(p.frames, frame)
}

// Flush returns all buffered frames in arrival order and empties the buffer.
// Ownership of the frames transfers to the caller.
func (p *PaddingBuffer) Flush() [][]byte {
	out := p.frames
	p.frames = nil
	return out
}

// Len returns the number of buffered frames.
func (p *PaddingBuffer) Len() int { return len(p.frames) }
