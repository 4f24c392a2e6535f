package main

import (
	"net"
	"testing"
	"time"

	"github.com/m-lab/go/osx"
)

// TestRun makes sure that running the generator for a handful of wakeups
// against a real, accepting listener does not panic and does not hang:
// start it up, bound its lifetime, and confirm it comes back down cleanly.
func TestRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not open test listener: %v", err)
	}
	defer ln.Close()
	go acceptAndDrain(t, ln)

	cleanup := osx.MustSetenv(maxWakeupsEnv, "5")
	defer cleanup()

	run(ln.Addr().String(), "bot", 2, time.Millisecond, 0, false)
}

func acceptAndDrain(t *testing.T, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			buf := make([]byte, 4096)
			for {
				if _, err := conn.Read(buf); err != nil {
					return
				}
			}
		}()
	}
}
