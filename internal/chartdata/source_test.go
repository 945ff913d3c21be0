package chartdata

// seqSource replays a fixed sequence of values, cycling when exhausted.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// midSource always returns 0.5, which zeroes every random perturbation.
func midSource() Source {
	return &seqSource{vals: []float64{0.5}}
}
