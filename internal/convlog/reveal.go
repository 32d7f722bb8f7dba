package convlog

import "time"

// Reveal yields growing prefixes of a final text, one per display
// frame, to simulate token streaming. It is finite and not restartable.
type Reveal struct {
	runes []rune
	pos   int
	step  int
}

// NewReveal builds a reveal over text advancing step runes per frame.
func NewReveal(text string, step int) *Reveal {
	if step < 1 {
		step = 1
	}
	return &Reveal{runes: []rune(text), step: step}
}

// Next returns the next prefix. The final call returns the full text;
// after that ok is false.
func (r *Reveal) Next() (prefix string, ok bool) {
	if r.pos >= len(r.runes) {
		return "", false
	}
	r.pos += r.step
	if r.pos > len(r.runes) {
		r.pos = len(r.runes)
	}
	return string(r.runes[:r.pos]), true
}

// Done reports whether the full text has been yielded.
func (r *Reveal) Done() bool {
	return r.pos >= len(r.runes)
}

// FrameScheduler paces the reveal. The host environment's frame
// primitive stands behind this; tests drive it manually.
type FrameScheduler interface {
	// Frames delivers one tick per display frame.
	Frames() <-chan time.Time
	// Stop releases the scheduler's resources.
	Stop()
}

// TickerScheduler is the production FrameScheduler: a plain ticker at a
// fixed frame pace.
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler creates a scheduler ticking every pace.
func NewTickerScheduler(pace time.Duration) *TickerScheduler {
	if pace <= 0 {
		pace = 30 * time.Millisecond
	}
	return &TickerScheduler{ticker: time.NewTicker(pace)}
}

// Frames implements FrameScheduler.
func (s *TickerScheduler) Frames() <-chan time.Time {
	return s.ticker.C
}

// Stop implements FrameScheduler.
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}
