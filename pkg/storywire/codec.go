package storywire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeError reports a malformed incoming frame. The frame is dropped;
// the connection stays open.
type DecodeError struct {
	Reason string
	Frame  []byte
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storywire: %s: %v", e.Reason, e.Cause)
	}
	return "storywire: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Decode parses one incoming frame into a Message. It returns a
// *DecodeError for unparseable structure, unknown kinds, audio frames
// without a valid sequence, and undecodable base64 payloads.
func Decode(frame []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, &DecodeError{Reason: "malformed frame", Frame: frame, Cause: err}
	}
	m.Raw = frame

	switch m.Type {
	case TypeText, TypeStatus, TypeError, TypeInterrupt:
		return &m, nil

	case TypeImage:
		if _, err := base64.StdEncoding.DecodeString(m.Data); err != nil {
			return nil, &DecodeError{Reason: "image payload is not valid base64", Frame: frame, Cause: err}
		}
		return &m, nil

	case TypeAudio:
		if m.Sequence == nil {
			return nil, &DecodeError{Reason: "audio frame missing sequence", Frame: frame}
		}
		if *m.Sequence < 0 {
			return nil, &DecodeError{Reason: "audio frame has negative sequence", Frame: frame}
		}
		audio, err := base64.StdEncoding.DecodeString(m.Data)
		if err != nil {
			return nil, &DecodeError{Reason: "audio payload is not valid base64", Frame: frame, Cause: err}
		}
		m.Audio = audio
		m.Seq = *m.Sequence
		return &m, nil

	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown message type %q", m.Type), Frame: frame}
	}
}

// ImageBytes returns the decoded image payload of an image message.
func (m *Message) ImageBytes() ([]byte, error) {
	if m.Type != TypeImage {
		return nil, fmt.Errorf("storywire: not an image message")
	}
	return base64.StdEncoding.DecodeString(m.Data)
}

// PCMRate extracts the sample rate from a PCM mime type such as
// "audio/pcm;rate=24000".
func PCMRate(mime string) (int, bool) {
	if !strings.HasPrefix(mime, "audio/pcm") {
		return 0, false
	}
	for _, part := range strings.Split(mime, ";")[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k != "rate" {
			continue
		}
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return 0, false
		}
		return rate, true
	}
	return 0, false
}
