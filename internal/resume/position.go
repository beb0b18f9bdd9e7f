package resume

// Position counts bytes delivered to the consumer of one logical download.
// It only moves forward. Not safe for concurrent use.
type Position struct {
	n int64
}

// Advance adds n delivered bytes. n must not be negative.
func (p *Position) Advance(n int64) {
	if n < 0 {
		panic("resume: negative position advance")
	}
	p.n += n
}

// Current returns the number of bytes delivered so far
func (p *Position) Current() int64 {
	return p.n
}
