package client

import (
	"testing"
	"time"

	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

func TestOnePingInFlight(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play
	now := time.Now()

	if err := c.tickPing(now, scratch); err != nil {
		t.Fatalf("first tickPing: %v", err)
	}
	if !c.PingInFlight {
		t.Fatal("expected a ping in flight after the first tick")
	}
	queuedAfterFirst := len(c.outq)

	if err := c.tickPing(now.Add(time.Millisecond), scratch); err != nil {
		t.Fatalf("second tickPing: %v", err)
	}
	if !c.PingOverdue {
		t.Error("a second tick with a ping already in flight must mark it overdue")
	}
	if len(c.outq) != queuedAfterFirst {
		t.Error("a second tick must not mint a second ping packet")
	}
}

func TestPongClearsInFlightAndTracksRTT(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play
	sendTime := time.Now()

	if err := c.sendPing(sendTime, scratch); err != nil {
		t.Fatalf("sendPing: %v", err)
	}
	payload := c.PingPayload

	recvTime := sendTime.Add(25 * time.Millisecond)
	if err := c.handlePong(payload, recvTime, scratch); err != nil {
		t.Fatalf("handlePong: %v", err)
	}
	if c.PingInFlight {
		t.Error("pong should clear the in-flight flag")
	}
	if c.RTTCount != 1 {
		t.Fatalf("RTTCount = %d, want 1", c.RTTCount)
	}
	if c.RTTMin != 25*time.Millisecond || c.RTTMax != 25*time.Millisecond {
		t.Errorf("RTTMin/Max = %v/%v, want 25ms/25ms", c.RTTMin, c.RTTMax)
	}
}

func TestPongPayloadMismatchLeavesInFlight(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play
	if err := c.sendPing(time.Now(), scratch); err != nil {
		t.Fatalf("sendPing: %v", err)
	}
	if err := c.handlePong(c.PingPayload+1, time.Now(), scratch); err != nil {
		t.Fatalf("handlePong: %v", err)
	}
	if !c.PingInFlight {
		t.Error("a mismatched pong must leave the ping in flight")
	}
	if c.RTTCount != 0 {
		t.Error("a mismatched pong must not update RTT statistics")
	}
}

func TestOverduePingReissuesOnPong(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play
	first := time.Now()
	if err := c.sendPing(first, scratch); err != nil {
		t.Fatalf("sendPing: %v", err)
	}
	firstPayload := c.PingPayload

	if err := c.tickPing(first.Add(time.Millisecond), scratch); err != nil {
		t.Fatalf("tickPing: %v", err)
	}
	if !c.PingOverdue {
		t.Fatal("expected overdue to be set")
	}

	if err := c.handlePong(firstPayload, first.Add(2*time.Millisecond), scratch); err != nil {
		t.Fatalf("handlePong: %v", err)
	}
	if c.PingOverdue {
		t.Error("handling the pong should clear overdue")
	}
	if !c.PingInFlight {
		t.Error("an overdue tick must cause a fresh ping to be sent immediately on the reply")
	}
}

func TestResetRTTFlagZeroesStats(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play
	now := time.Now()
	if err := c.sendPing(now, scratch); err != nil {
		t.Fatalf("sendPing: %v", err)
	}
	if err := c.handlePong(c.PingPayload, now.Add(10*time.Millisecond), scratch); err != nil {
		t.Fatalf("handlePong: %v", err)
	}
	if c.RTTCount != 1 {
		t.Fatalf("RTTCount = %d, want 1", c.RTTCount)
	}

	c.ResetRTT = true
	if err := c.sendPing(now.Add(20*time.Millisecond), scratch); err != nil {
		t.Fatalf("sendPing: %v", err)
	}
	if err := c.handlePong(c.PingPayload, now.Add(25*time.Millisecond), scratch); err != nil {
		t.Fatalf("handlePong: %v", err)
	}
	if c.RTTCount != 1 {
		t.Errorf("RTTCount after reset = %d, want 1 (the reset should zero, then this pong adds one)", c.RTTCount)
	}
	if c.RTTMin != 5*time.Millisecond {
		t.Errorf("RTTMin after reset = %v, want 5ms", c.RTTMin)
	}
}
