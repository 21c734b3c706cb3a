package retry

import "time"

// Param holds the retry settings. They come from configuration
// (api.max_retries) and are opaque to the retry loop itself.
type Param struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       time.Duration
	RandomSeed   int64
}

// NewParam returns a Param with the backoff used for PokeAPI calls:
// 250ms doubling up to 5s, with up to 100ms of jitter.
func NewParam(maxAttempts int) Param {
	return Param{
		MaxAttempts:  maxAttempts,
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       100 * time.Millisecond,
		RandomSeed:   time.Now().UnixNano(),
	}
}

// Delay computes the exponential backoff delay after the given attempt (1-based).
func (p Param) Delay(attempt int, jitter time.Duration) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if p.MaxDelay > 0 && time.Duration(delay) >= p.MaxDelay {
			delay = float64(p.MaxDelay)
			break
		}
	}
	d := time.Duration(delay) + jitter
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
