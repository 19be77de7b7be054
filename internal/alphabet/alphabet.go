// Package alphabet builds the dense effective-symbol mapping (spec
// component C4): original symbols map to ranks [0, sigma) in sorted
// order, and every local text symbol is rewritten through that mapping.
package alphabet

import "github.com/pdinklag/distwt-sub000/internal/histogram"

// Map is the deterministic symbol -> effective-rank table recovered from
// the global, symbol-sorted histogram.
type Map struct {
	rank map[uint32]uint32
}

// New builds a Map from sorted histogram entries: entry i maps to rank i.
func New(entries []histogram.Entry) *Map {
	m := &Map{rank: make(map[uint32]uint32, len(entries))}
	for i, e := range entries {
		m.rank[e.Symbol] = uint32(i)
	}
	return m
}

// Rank returns the effective rank of an original symbol.
func (m *Map) Rank(sym uint32) uint32 { return m.rank[sym] }

// Transform applies the mapping to every symbol `process` visits, in
// place through a callback, keeping memory bounded the way
// EffectiveAlphabet::transform does in the original C++.
func Transform(m *Map, process func(visit func(sym uint32)) error, emit func(esym uint32)) error {
	return process(func(sym uint32) { emit(m.Rank(sym)) })
}
