package adminflow

import "sync/atomic"

// sequencer hands out increasing tickets. Only the holder of the most
// recently issued ticket may write a view.
type sequencer struct {
	n atomic.Uint64
}

func (s *sequencer) next() uint64 {
	return s.n.Add(1)
}

func (s *sequencer) current(ticket uint64) bool {
	return s.n.Load() == ticket
}
