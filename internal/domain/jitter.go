package domain

import "math/rand/v2"

// Jitter is the randomness seam of the forecast synthesizer.
// Implementations are not safe for concurrent use unless stated otherwise.
type Jitter interface {
	// Offset returns a value in [-amplitude, +amplitude].
	Offset(amplitude float64) float64
}

type randomJitter struct {
	rng *rand.Rand
}

// NewRandomJitter returns a uniform jitter source seeded from the runtime.
func NewRandomJitter() Jitter {
	return &randomJitter{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededJitter returns a uniform jitter source that yields the same
// sequence for the same seed.
func NewSeededJitter(seed uint64) Jitter {
	return &randomJitter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (j *randomJitter) Offset(amplitude float64) float64 {
	return (j.rng.Float64()*2 - 1) * amplitude
}

// NoJitter always returns zero. It is safe for concurrent use.
type NoJitter struct{}

func (NoJitter) Offset(float64) float64 { return 0 }

// SequenceJitter replays fixed fractions of the amplitude in order, cycling
// when exhausted. Fractions are clamped to [-1, 1].
type SequenceJitter struct {
	fractions []float64
	pos       int
}

// NewSequenceJitter creates a SequenceJitter. With no fractions it behaves
// like NoJitter.
func NewSequenceJitter(fractions ...float64) *SequenceJitter {
	return &SequenceJitter{fractions: append([]float64(nil), fractions...)}
}

func (s *SequenceJitter) Offset(amplitude float64) float64 {
	if len(s.fractions) == 0 {
		return 0
	}
	f := s.fractions[s.pos%len(s.fractions)]
	s.pos++
	return clamp(f, -1, 1) * amplitude
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
