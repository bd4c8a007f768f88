package quiz

import "math/rand/v2"

type sampleConfig struct {
	rng *rand.Rand
}

type SampleOption func(*sampleConfig)

// WithSeed makes the draw reproducible. Without it every call is freshly random.
func WithSeed(seed uint64) SampleOption {
	return func(c *sampleConfig) { c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand draws from r. r is not safe for concurrent use.
func WithRand(r *rand.Rand) SampleOption {
	return func(c *sampleConfig) { c.rng = r }
}

// DrawLimit is how many questions an attempt gets from the pool.
func DrawLimit(p QuestionPool) int {
	n := len(p.Questions)
	if p.Settings.Mode == SampleRandomDraw && p.Settings.DrawCount > 0 && p.Settings.DrawCount < n {
		return p.Settings.DrawCount
	}
	return n
}

// Sample returns a uniformly shuffled copy of the pool truncated to DrawLimit.
// The pool itself is not reordered.
func Sample(p QuestionPool, opts ...SampleOption) []Question {
	cfg := sampleConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	n := len(p.Questions)
	if n == 0 {
		return []Question{}
	}
	out := make([]Question, n)
	copy(out, p.Questions)

	shuffle := rand.Shuffle
	if cfg.rng != nil {
		shuffle = cfg.rng.Shuffle
	}
	// Fisher-Yates
	shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	lim := DrawLimit(p)
	return out[:lim:lim]
}
