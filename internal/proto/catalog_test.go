package proto_test

import (
	"testing"

	"github.com/loadgen/mcbot/internal/proto"
)

func TestPhaseString(t *testing.T) {
	cases := map[proto.Phase]string{
		proto.Free:   "Free",
		proto.Login:  "Login",
		proto.Config: "Config",
		proto.Play:   "Play",
		proto.Phase(99): "UNKNOWN_PHASE_99",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}

func TestKnownAndName(t *testing.T) {
	if !proto.Known(proto.Play, proto.Clientbound, proto.PlayKeepAlive) {
		t.Error("PlayKeepAlive should be known clientbound in Play")
	}
	if proto.Known(proto.Play, proto.Serverbound, proto.PlayKeepAlive) {
		t.Error("PlayKeepAlive is clientbound only, should not be known serverbound")
	}
	if proto.Name(proto.Play, proto.Clientbound, proto.PlayKeepAlive) != "keep_alive" {
		t.Errorf("unexpected name: %s", proto.Name(proto.Play, proto.Clientbound, proto.PlayKeepAlive))
	}
	if proto.Name(proto.Play, proto.Clientbound, 0x7FFF) != "(unknown)" {
		t.Error("unregistered id should report (unknown)")
	}
}

func TestIDString(t *testing.T) {
	if got := proto.IDString(0x26); got != "38 (0x26)" {
		t.Errorf("IDString(0x26) = %q", got)
	}
}
