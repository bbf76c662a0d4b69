package sim

// utilityHistory is a fixed-capacity FIFO window of utility observations.
// When full, pushing a value evicts the oldest one.
type utilityHistory struct {
	values []float64
	start  int // index of the oldest value
	size   int
}

func newUtilityHistory(capacity int) *utilityHistory {
	return &utilityHistory{values: make([]float64, capacity)}
}

func (h *utilityHistory) push(v float64) {
	capacity := len(h.values)
	if h.size < capacity {
		h.values[(h.start+h.size)%capacity] = v
		h.size++
		return
	}
	h.values[h.start] = v
	h.start = (h.start + 1) % capacity
}

func (h *utilityHistory) len() int {
	return h.size
}

// snapshot returns the values oldest first.
func (h *utilityHistory) snapshot() []float64 {
	out := make([]float64, h.size)
	for i := range out {
		out[i] = h.values[(h.start+i)%len(h.values)]
	}
	return out
}
