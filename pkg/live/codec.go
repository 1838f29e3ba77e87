package live

import (
	"encoding/json"

	"github.com/reflow-dev/reflow/internal/errors"
)

// FrameType discriminates wire frames on a live connection.
type FrameType string

const (
	// FrameSubscribe asks the hub to start streaming a channel to the peer.
	FrameSubscribe FrameType = "subscribe"

	// FrameUnsubscribe stops streaming a channel to the peer.
	FrameUnsubscribe FrameType = "unsubscribe"

	// FrameSet is a client write: the hub applies the value to the
	// channel's signal, which fans out to every subscriber.
	FrameSet FrameType = "set"

	// FrameUpdate carries a channel's current value to a peer. Sent as a
	// snapshot on subscribe and on every subsequent signal write.
	FrameUpdate FrameType = "update"

	// FrameError reports a per-frame failure back to the peer.
	FrameError FrameType = "error"
)

// Frame is the JSON envelope exchanged over a live WebSocket.
type Frame struct {
	Type    FrameType       `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Message string          `json:"message,omitempty"`
}

// EncodeFrame serializes a frame for the wire.
func EncodeFrame(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap("E201", errors.CategoryProtocol, "encode frame", err)
	}
	return data, nil
}

// DecodeFrame parses and validates an inbound frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.Wrap("E202", errors.CategoryProtocol, "malformed frame", err)
	}
	switch f.Type {
	case FrameSubscribe, FrameUnsubscribe, FrameSet:
		if f.Channel == "" {
			return Frame{}, errors.New("E203", errors.CategoryProtocol, "frame is missing a channel name").
				WithSuggestion(`include a "channel" field naming the broadcast signal`)
		}
	case FrameUpdate, FrameError:
		// Server-originated; clients echoing them back is a protocol error.
		return Frame{}, errors.New("E204", errors.CategoryProtocol, "frame type is server-to-client only")
	default:
		return Frame{}, errors.New("E205", errors.CategoryProtocol, "unknown frame type "+string(f.Type))
	}
	if f.Type == FrameSet && len(f.Value) == 0 {
		return Frame{}, errors.New("E206", errors.CategoryProtocol, "set frame is missing a value")
	}
	return f, nil
}
