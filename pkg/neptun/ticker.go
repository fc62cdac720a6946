package neptun

// rateTicker decides, once per engine tick, whether a send slot is
// available for a given packets-per-second budget. It accumulates
// fractional slots across ticks rather than rounding per tick, so a rate
// that doesn't divide evenly into the tick rate still averages out
// correctly over a second.
type rateTicker struct {
	ratePerSecond float64
	tickRate      float64
	accumulated   float64
}

// newRateTicker builds a ticker for a given send rate, assuming Tick is
// called tickRate times per second.
func newRateTicker(ratePerSecond uint8, tickRate float64) *rateTicker {
	return &rateTicker{ratePerSecond: float64(ratePerSecond), tickRate: tickRate}
}

// setRate updates the budget, e.g. once the handshake negotiates the
// sustained rate for this direction.
func (t *rateTicker) setRate(ratePerSecond uint8) {
	t.ratePerSecond = float64(ratePerSecond)
}

// tick accumulates this tick's fractional allowance. Call once per engine
// tick regardless of whether a send happens.
func (t *rateTicker) tick() {
	if t.ratePerSecond <= 0 || t.tickRate <= 0 {
		return
	}
	t.accumulated += t.ratePerSecond / t.tickRate
}

// ready reports whether at least one send slot is available.
func (t *rateTicker) ready() bool {
	if t.ratePerSecond <= 0 {
		return true
	}
	return t.accumulated >= 1
}

// consume spends one send slot. Callers must only call this after ready
// reports true.
func (t *rateTicker) consume() {
	t.accumulated -= 1
	if t.accumulated < 0 {
		t.accumulated = 0
	}
}
