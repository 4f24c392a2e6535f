package proto

import "fmt"

// WireError is the diagnostic a connection closes with on any malformed frame:
// short read, varint overflow, string too long, unknown id in a known phase, or
// unexpected trailing bytes. It carries everything needed for the log line.
type WireError struct {
	Phase      Phase
	PacketName string
	PacketID   int32
	FrameLen   int
	Pos        int
	Msg        string
}

func (e *WireError) Error() string {
	name := e.PacketName
	if name == "" {
		name = "(unknown)"
	}
	return fmt.Sprintf("wire error: phase=%s packet=%s id=%s len=%d pos=%d: %s",
		e.Phase, name, IDString(e.PacketID), e.FrameLen, e.Pos, e.Msg)
}

// NewWireError builds a WireError, looking up the packet's diagnostic name from the
// catalog (clientbound direction, since wire errors only ever occur while decoding
// what the server sent).
func NewWireError(phase Phase, id int32, frameLen, pos int, msg string) *WireError {
	return &WireError{
		Phase:      phase,
		PacketName: Name(phase, Clientbound, id),
		PacketID:   id,
		FrameLen:   frameLen,
		Pos:        pos,
		Msg:        msg,
	}
}
