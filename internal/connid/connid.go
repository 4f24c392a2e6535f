// Package connid derives a stable diagnostic identifier for a connection from its
// socket's kernel cookie (SO_COOKIE). It operates directly on the raw,
// non-blocking file descriptors the multiplexer already holds, since this
// generator never wraps its sockets in a *net.TCPConn.
package connid

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// soCookie is SO_COOKIE from linux/socket.h; golang.org/x/sys/unix does not
// define it as of this writing.
const soCookie = 57

var cachedPrefix string

func timeToUnix(t time.Time) int64 {
	return t.Sub(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)).Nanoseconds() / int64(time.Second)
}

func getBoottimeWithRaceCondition() (int64, error) {
	procUptime, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return -1, err
	}
	parts := strings.SplitN(string(procUptime), " ", 2)
	if len(parts) != 2 {
		return -1, fmt.Errorf("could not split /proc/uptime into two parts")
	}
	uptime, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return -1, fmt.Errorf("could not parse /proc/uptime into a float")
	}
	return timeToUnix(time.Now().Add(-time.Duration(uptime * float64(time.Second)))), nil
}

// getBoottime calls the race-prone reader repeatedly until it settles, eliminating
// the race without needing a lock.
func getBoottime() (int64, error) {
	var prev, curr int64
	curr, err := getBoottimeWithRaceCondition()
	if err != nil {
		return curr, err
	}
	for prev != curr {
		prev = curr
		curr, err = getBoottimeWithRaceCondition()
		if err != nil {
			return curr, err
		}
	}
	return curr, nil
}

func getPrefix() (string, error) {
	if cachedPrefix != "" {
		return cachedPrefix, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	boottime, err := getBoottime()
	if err != nil {
		return "", err
	}
	cachedPrefix = fmt.Sprintf("%s_%d", hostname, boottime)
	return cachedPrefix, nil
}

// FromFD returns a globally unique (for this boot of this host) diagnostic id for
// the raw socket fd, or an error if SO_COOKIE is unavailable.
func FromFD(fd int) (string, error) {
	cookie, err := unix.GetsockoptUint64(fd, unix.SOL_SOCKET, soCookie)
	if err != nil {
		return "", err
	}
	return FromCookie(cookie)
}

// FromCookie formats a raw socket cookie as a diagnostic id.
func FromCookie(cookie uint64) (string, error) {
	prefix, err := getPrefix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%X", prefix, cookie), nil
}
