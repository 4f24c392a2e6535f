// Command mcbot is a synthetic-load generator for a block-world multiplayer game
// server: it opens many concurrent client connections, drives each through
// login/configuration/play, and sustains per-client activity to stress-test the
// target server.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"

	"github.com/loadgen/mcbot/internal/client"
	"github.com/loadgen/mcbot/internal/metrics"
	"github.com/loadgen/mcbot/internal/mux"
	"github.com/loadgen/mcbot/internal/sched"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultCatchupLimit = 200 * time.Millisecond
)

var (
	count      = flag.Int("c", 1, "Number of concurrent client connections to maintain.")
	namePrefix = flag.String("n", "bot", "Prefix used to derive each connection's login name (prefix+index).")
	rate       = flag.Float64("r", 1000, "Scheduler wakeups per second.")
	spamRate   = flag.Float64("s", 0, "Aggregate chat messages per second across all connections (0 disables spam).")
	shuffle    = flag.Bool("z", false, "Periodically shuffle connection traversal order for fairness measurement.")
)

// logFatal is a variable so tests can mock it instead of killing the test binary.
var logFatal = log.Fatal

func main() {
	flag.Usage = usage
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	addr := flag.Arg(0)

	if *count <= 0 {
		logFatal("-c must be a positive connection count")
	}
	if *rate <= 0 {
		logFatal("-r must be a positive wakeup rate")
	}

	wakeupInterval := time.Duration(float64(time.Second) / *rate)
	spamProb := 0.0
	if *spamRate > 0 {
		spamProb = *spamRate / (float64(*count) * defaultTickInterval.Seconds())
	}

	run(addr, *namePrefix, *count, wakeupInterval, spamProb, *shuffle)
}

// maxWakeupsEnv bounds the run loop to a fixed number of poll iterations when
// set. It exists for tests only (see main_test.go) — the CLI surface itself has
// no such flag.
const maxWakeupsEnv = "MCBOT_MAX_WAKEUPS"

func run(addr, namePrefix string, count int, wakeupInterval time.Duration, spamProb float64, shuffle bool) {
	m := metrics.New()
	mp, err := mux.New(addr, namePrefix, count, m)
	rtx.Must(err, "Could not initialize connection multiplexer for %q", addr)

	now := time.Now()
	s := sched.New(count, defaultTickInterval, wakeupInterval, defaultCatchupLimit, spamProb, now)

	shuffleRng := rand.New(rand.NewSource(now.UnixNano()))
	lastSample := now

	maxWakeups := 0
	if v := os.Getenv(maxWakeupsEnv); v != "" {
		maxWakeups, _ = strconv.Atoi(v)
	}

	for wakeups := 0; ; wakeups++ {
		now = time.Now()
		if err := mp.PollTimeout(s.PollTimeout(now)); err != nil {
			log.Printf("poll: %v", err)
		}

		// unix.Poll returns as soon as any socket is I/O-ready, which under the
		// load this generator itself produces is most of the time — far more
		// often than a genuine wakeup boundary. Only step the tick scheduler
		// once curWakeup has actually elapsed, or the "force at least one tick
		// of progress per wakeup" rule fires on every poll return instead of
		// on every real wakeup, ticking connections far faster than paced.
		now = time.Now()
		if now.Before(s.NextWakeup()) {
			continue
		}
		s.Wakeup(now, mp)

		if now.Sub(lastSample) >= time.Second {
			lastSample = now
			sample(m, mp.Conns(), s, now)
			if shuffle {
				mp.Shuffle(shuffleRng)
			}
		}

		if maxWakeups > 0 && wakeups+1 >= maxWakeups {
			return
		}
	}
}

func sample(m *metrics.Metrics, conns []*client.Conn, s *sched.Scheduler, now time.Time) {
	states := make([]metrics.ConnState, len(conns))
	for i, c := range conns {
		states[i] = metrics.ConnState{
			Phase:      c.Phase.String(),
			ChunkCount: c.ChunkCount,
			RTTMin:     c.RTTMin,
			RTTMax:     c.RTTMax,
			RTTSum:     c.RTTSum,
			RTTCount:   c.RTTCount,
		}
		c.ResetRTT = true // the next matching pong starts a fresh RTT window
	}
	row := m.Sample(now, states, s.TickLag(), os.Stderr)

	if os.Getenv("MCBOT_CSV_METRICS") == "1" {
		if err := metrics.WriteCSV([]metrics.Row{row}, os.Stderr); err != nil {
			log.Printf("csv metrics snapshot: %v", err)
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] host[:port]\n", os.Args[0])
	flag.PrintDefaults()
}
