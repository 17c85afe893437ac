package game

// Observations is the window of pre-determined future fish displacement
// codes, keyed by fish id. Entry i of a sequence is consumed by the
// transition taken at ply i of the window, regardless of which branch of
// the search tree takes it.
type Observations map[int][]int

// Horizon is the number of plies the window covers: the length of the
// shortest sequence. A window with no fish covers nothing.
func (o Observations) Horizon() int {
	if len(o) == 0 {
		return 0
	}
	h := -1
	for _, seq := range o {
		if h == -1 || len(seq) < h {
			h = len(seq)
		}
	}
	return h
}

// Code returns the displacement code of fish id at the given ply. Fish
// without an entry stay still.
func (o Observations) Code(id, ply int) int {
	seq, ok := o[id]
	if !ok || ply < 0 || ply >= len(seq) {
		return DisplaceNone
	}
	return seq[ply]
}

// Suffix returns the window as seen from the given ply onwards.
func (o Observations) Suffix(ply int) Observations {
	out := make(Observations, len(o))
	for id, seq := range o {
		if ply >= len(seq) {
			out[id] = []int{}
			continue
		}
		out[id] = seq[ply:]
	}
	return out
}
