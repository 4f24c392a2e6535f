// Package mux implements the single-threaded, readiness-driven I/O multiplexer:
// opening sockets, polling them all in one syscall, and performing the actual
// non-blocking reads and writes that drive each connection's state machine.
package mux

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/m-lab/go/logx"
	"golang.org/x/sys/unix"

	"github.com/loadgen/mcbot/internal/client"
	"github.com/loadgen/mcbot/internal/connid"
	"github.com/loadgen/mcbot/internal/metrics"
	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

// scratchReadSize is the size of the transient buffer each readiness dispatch
// reads into. Its lifetime is a single dispatch, so no cross-connection aliasing
// occurs even though it is reused across every connection and every wakeup.
const scratchReadSize = 64 * 1024

// closeLog rate-limits connection-close diagnostics: under load, many
// connections can fail in the same burst (a restarted server, a dropped
// route), and logging every one would flood stderr.
var closeLog = logx.NewLogEvery(nil, time.Second)

// Multiplexer owns a fixed-size collection of connections and their raw sockets.
// It is not safe for concurrent use: the tick scheduler and the multiplexer run on
// the same goroutine.
type Multiplexer struct {
	conns []*client.Conn
	pfds  []unix.PollFd // index-aligned with conns

	hostname string
	port     uint16
	ip       net.IP
	family   int // unix.AF_INET or unix.AF_INET6

	scratch    *wire.Scratch
	readBuf    [scratchReadSize]byte
	metrics    *metrics.Metrics
	namePrefix string
}

// New resolves addr (host, or host:port; port defaults to proto.DefaultPort) and
// builds a multiplexer with n connection slots, all initially Free.
func New(addr, namePrefix string, n int, m *metrics.Metrics) (*Multiplexer, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", host, err)
	}
	ip := ips[0]
	family := unix.AF_INET
	if ip.To4() == nil {
		family = unix.AF_INET6
	}

	mx := &Multiplexer{
		hostname:   host,
		port:       port,
		ip:         ip,
		family:     family,
		scratch:    wire.NewScratch(),
		metrics:    m,
		namePrefix: namePrefix,
	}
	mx.conns = make([]*client.Conn, n)
	mx.pfds = make([]unix.PollFd, n)
	for i := 0; i < n; i++ {
		mx.conns[i] = client.NewConn(i, fmt.Sprintf("%s%d", namePrefix, i))
		mx.pfds[i].Fd = -1
	}
	return mx, nil
}

func splitHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given; treat the whole thing as a bare host.
		return addr, 25565, nil
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("bad port %q: %w", portStr, err)
	}
	return host, uint16(port), nil
}

// Conns returns the fixed connection slots, in index order, for the scheduler and
// metrics aggregator to iterate.
func (mx *Multiplexer) Conns() []*client.Conn {
	return mx.conns
}

// Tick runs connection i's one round of Play activity. The scheduler calls this;
// it never touches sockets directly.
func (mx *Multiplexer) Tick(i int, now time.Time, spamProb float64) {
	if err := mx.conns[i].Tick(now, mx.scratch, spamProb); err != nil {
		mx.closeConn(i, err)
	}
	mx.armWrite(i)
}

// PollTimeout blocks in the readiness poll for up to timeout, then performs one
// full readiness cycle across every connection in ascending index order: Free
// slots are reopened, writable sockets are drained, then readable sockets are
// drained. Read-after-write ordering is deliberate: it empties the outbound queue
// before buffering more inbound work.
func (mx *Multiplexer) PollTimeout(timeout time.Duration) error {
	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	n, err := unix.Poll(mx.pfds, ms)
	if err != nil && err != unix.EINTR {
		return fmt.Errorf("poll: %w", err)
	}
	for i := range mx.conns {
		if mx.conns[i].Phase == proto.Free {
			mx.reopen(i)
			continue
		}
		if n <= 0 {
			continue
		}
		revents := mx.pfds[i].Revents
		if revents == 0 {
			continue
		}
		if revents&(unix.POLLOUT) != 0 {
			mx.writeReady(i)
		}
		if mx.conns[i].Phase == proto.Free {
			continue // closed mid-drain by the write side
		}
		if revents&(unix.POLLIN) != 0 {
			mx.readReady(i)
		}
	}
	return nil
}

func (mx *Multiplexer) closeConn(i int, cause error) {
	c := mx.conns[i]
	if wireErr, ok := cause.(*proto.WireError); ok && mx.metrics != nil {
		// LogWireError already prints a rate-limited, phase-labeled diagnostic
		// and bumps the wire-error counter; skip the generic line below so a
		// malformed frame doesn't log twice.
		mx.metrics.LogWireError(wireErr.Phase.String(), fmt.Errorf("%s [%s]: %w", c.Name, c.ConnID, wireErr))
	} else if cause != nil {
		closeLog.Printf("%s [%s]: closing: %v", c.Name, c.ConnID, cause)
	}
	if c.FD >= 0 {
		unix.Close(c.FD)
	}
	c.Reset()
	mx.pfds[i] = unix.PollFd{Fd: -1}
	if mx.metrics != nil {
		mx.metrics.ConnectionClosed.Inc()
	}
}

func (mx *Multiplexer) armWrite(i int) {
	if mx.conns[i].HasPendingWrites() {
		mx.pfds[i].Events |= unix.POLLOUT
	}
}

// Shuffle performs a Fisher-Yates shuffle of the connection/poll-slot pairs,
// swapping both arrays together so index alignment is preserved. Used only when
// the operator enables periodic fairness shuffling (-z).
func (mx *Multiplexer) Shuffle(rng interface{ Intn(int) int }) {
	for i := len(mx.conns) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		mx.conns[i], mx.conns[j] = mx.conns[j], mx.conns[i]
		mx.conns[i].Index, mx.conns[j].Index = i, j
		mx.pfds[i], mx.pfds[j] = mx.pfds[j], mx.pfds[i]
	}
}

func (mx *Multiplexer) reopen(i int) {
	fd, err := unix.Socket(mx.family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		log.Printf("%s: socket: %v", mx.conns[i].Name, err)
		return
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		log.Printf("%s: setsockopt TCP_NODELAY: %v", mx.conns[i].Name, err)
	}

	sa := mx.sockaddr()
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		log.Printf("%s: connect: %v", mx.conns[i].Name, err)
		unix.Close(fd)
		return
	}

	// Leaving Free happens the instant the socket is created, not once the
	// connect completes: the connecting-but-not-yet-established period is folded
	// into Login, distinguished only by Connected, not by Phase.
	mx.conns[i].FD = fd
	mx.conns[i].Phase = proto.Login
	mx.pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLOUT}
}

func (mx *Multiplexer) sockaddr() unix.Sockaddr {
	if mx.family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: int(mx.port)}
		copy(sa.Addr[:], mx.ip.To16())
		return sa
	}
	sa := &unix.SockaddrInet4{Port: int(mx.port)}
	copy(sa.Addr[:], mx.ip.To4())
	return sa
}

func (mx *Multiplexer) writeReady(i int) {
	c := mx.conns[i]
	if !c.Connected {
		errno, err := unix.GetsockoptInt(c.FD, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil || errno != 0 {
			mx.closeConn(i, fmt.Errorf("connect failed: errno=%d err=%v", errno, err))
			return
		}
		c.Connected = true
		if id, err := connid.FromFD(c.FD); err == nil {
			c.ConnID = id
		}
		if err := c.Open(mx.hostname, mx.port, mx.scratch); err != nil {
			mx.closeConn(i, err)
			return
		}
	}

	for c.HasPendingWrites() {
		buf := c.HeadWrite()
		n, err := unix.Write(c.FD, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EPIPE || err == unix.ECONNRESET {
				mx.closeConn(i, nil)
				return
			}
			mx.closeConn(i, fmt.Errorf("write: %w", err))
			return
		}
		c.AdvanceWrite(n)
	}
	mx.pfds[i].Events &^= unix.POLLOUT
}

func (mx *Multiplexer) readReady(i int) {
	c := mx.conns[i]
	n, err := unix.Read(c.FD, mx.readBuf[:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err == unix.ECONNRESET {
			mx.closeConn(i, nil)
			return
		}
		mx.closeConn(i, fmt.Errorf("read: %w", err))
		return
	}
	if n == 0 {
		mx.closeConn(i, nil)
		return
	}
	if err := c.Feed(mx.readBuf[:n], time.Now(), mx.scratch); err != nil {
		mx.closeConn(i, err)
		return
	}
	mx.armWrite(i)
}
