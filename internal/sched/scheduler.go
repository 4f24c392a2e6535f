// Package sched implements the tick-paced scheduler: it decides, at every
// readiness-poll wakeup, how many of the N connections are due a Play tick, and
// tracks how far real time has drifted from the ideal tick boundaries.
package sched

import "time"

// Ticker is the thing the scheduler drives once per wakeup: connection index i
// is due exactly one tick per tick interval. package mux.Multiplexer satisfies
// this directly.
type Ticker interface {
	Tick(i int, now time.Time, spamProb float64)
}

// Scheduler holds the five monotonic clocks described in the tick-scheduler
// design and the accumulated lag counters the metrics sampler reads back.
type Scheduler struct {
	n int

	tickInterval   time.Duration
	wakeupInterval time.Duration
	catchupLimit   time.Duration

	curTick    time.Time
	curWakeup  time.Time
	clientsTicked int

	tickLagTotal time.Duration
	spamProb     float64
}

// New creates a scheduler for n connections, starting its first tick at now.
func New(n int, tickInterval, wakeupInterval, catchupLimit time.Duration, spamProb float64, now time.Time) *Scheduler {
	return &Scheduler{
		n:              n,
		tickInterval:   tickInterval,
		wakeupInterval: wakeupInterval,
		catchupLimit:   catchupLimit,
		curTick:        now,
		curWakeup:      now,
		spamProb:       spamProb,
	}
}

// TickLag returns the unabsorbed lag accumulated since the scheduler began, for
// the metrics sampler's one stderr line.
func (s *Scheduler) TickLag() time.Duration {
	return s.tickLagTotal
}

// NextWakeup reports the earliest time the caller should next invoke Wakeup,
// for use as the I/O poll timeout.
func (s *Scheduler) NextWakeup() time.Time {
	return s.curWakeup
}

// Wakeup performs one full scheduler step against t, ticking whichever
// connections in [clientsTicked, target) have become due, and advancing the
// tick/wakeup clocks per the four-step algorithm. now is the actual wall-clock
// time of this wakeup, which may lag curWakeup under load.
func (s *Scheduler) Wakeup(now time.Time, t Ticker) {
	// Step 1: target index.
	bound := now
	if tickEnd := s.curTick.Add(s.tickInterval); tickEnd.Before(bound) {
		bound = tickEnd
	}
	elapsed := bound.Add(s.wakeupInterval).Sub(s.curTick)
	target := int(elapsed.Nanoseconds() * int64(s.n) / s.tickInterval.Nanoseconds())
	if target > s.n {
		target = s.n
	}
	if target < 0 {
		target = 0
	}
	if target == s.clientsTicked && s.clientsTicked < s.n {
		// Force at least one tick of progress per wakeup.
		target = s.clientsTicked + 1
	}

	// Step 2: tick whatever newly fell due.
	if target > s.clientsTicked {
		for i := s.clientsTicked; i < target; i++ {
			t.Tick(i, now, s.spamProb)
		}
		s.clientsTicked = target
	}

	// Step 3: roll over into a new tick once every connection has been ticked.
	if s.clientsTicked == s.n {
		s.clientsTicked = 0
		s.curTick = s.curTick.Add(s.tickInterval)
		if now.After(s.curTick) {
			s.tickLagTotal += now.Sub(s.curTick)
		}
		if limit := s.curTick.Add(s.catchupLimit); now.After(limit) {
			// now - curTick was credited just above; snapping must not
			// credit any part of it a second time.
			s.curTick = now
		}
	}

	// Step 4: schedule the next wakeup.
	nextWakeup := s.curTick.Add(time.Duration(int64(s.clientsTicked) * s.tickInterval.Nanoseconds() / int64(s.n)))
	advance := s.curWakeup.Add(s.wakeupInterval)
	if advance.After(nextWakeup) {
		s.curWakeup = advance
	} else {
		s.curWakeup = nextWakeup
	}
}

// PollTimeout is the duration the caller should pass to the I/O poll before the
// next Wakeup call: the time remaining until curWakeup, floored at zero and
// rounded up to a whole millisecond since unix.Poll's timeout is integer ms.
func (s *Scheduler) PollTimeout(now time.Time) time.Duration {
	d := s.curWakeup.Sub(now)
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return ms * time.Millisecond
}
