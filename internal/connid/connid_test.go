package connid_test

import (
	"net"
	"strings"
	"testing"

	"github.com/m-lab/go/rtx"

	"github.com/loadgen/mcbot/internal/connid"
)

// TestFromFDDistinguishesConnections checks that two real TCP connections
// through the same listener get distinct ids sharing a common host/boot prefix.
func TestFromFDDistinguishesConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtx.Must(err, "could not open test listener")
	defer ln.Close()

	dial := func() *net.TCPConn {
		conn, err := net.Dial("tcp", ln.Addr().String())
		rtx.Must(err, "could not dial test listener")
		return conn.(*net.TCPConn)
	}

	c1 := dial()
	defer c1.Close()
	c2 := dial()
	defer c2.Close()

	fd1, err := fileDescriptor(c1)
	rtx.Must(err, "could not get fd for c1")
	fd2, err := fileDescriptor(c2)
	rtx.Must(err, "could not get fd for c2")

	id1, err := connid.FromFD(fd1)
	if err != nil {
		t.Skipf("SO_COOKIE unavailable in this environment: %v", err)
	}
	id2, err := connid.FromFD(fd2)
	rtx.Must(err, "could not get id for c2")

	if id1 == id2 {
		t.Error("two distinct connections must not share a diagnostic id")
	}
	prefix1 := id1[:strings.LastIndex(id1, "_")]
	prefix2 := id2[:strings.LastIndex(id2, "_")]
	if prefix1 != prefix2 {
		t.Errorf("expected a shared host/boot prefix, got %q and %q", prefix1, prefix2)
	}
}

func fileDescriptor(conn *net.TCPConn) (int, error) {
	f, err := conn.File()
	if err != nil {
		return -1, err
	}
	return int(f.Fd()), nil
}
