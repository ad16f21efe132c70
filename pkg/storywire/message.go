package storywire

import (
	"encoding/base64"
	"encoding/json"

	"github.com/storygear/storygear/pkg/audio/pcm"
)

// Type discriminates the message union.
type Type string

const (
	// TypeText carries a partial text fragment. Consecutive text
	// fragments concatenate until a frame of a different type arrives.
	TypeText Type = "text"
	// TypeImage carries a base64-encoded image.
	TypeImage Type = "image"
	// TypeAudio carries a base64 PCM16 chunk with a sequence number.
	TypeAudio Type = "audio"
	// TypeStatus carries a peer status hint for the UI.
	TypeStatus Type = "status"
	// TypeError carries a human-readable peer error.
	TypeError Type = "error"
	// TypeInterrupt is the client's barge-in control frame.
	TypeInterrupt Type = "interrupt"
)

// Message is one frame of the story channel.
type Message struct {
	Type     Type   `json:"type"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Sequence *int   `json:"sequence,omitempty"`

	// Audio holds the decoded PCM16 payload of an audio frame.
	// Populated by Decode, never serialized.
	Audio []byte `json:"-"`

	// Seq is the sequence number of an audio frame. Populated by
	// Decode; a decoded audio message always has Seq >= 0.
	Seq int `json:"-"`

	// Raw is the original frame as received. Populated by Decode.
	Raw []byte `json:"-"`
}

// Text builds an outgoing text frame.
func Text(s string) *Message {
	return &Message{Type: TypeText, Data: s}
}

// AudioChunk builds an outgoing audio frame: base64 PCM16 bytes with
// the fixed capture mime type so the peer can decode without
// renegotiation.
func AudioChunk(pcm16 []byte, format pcm.Format) *Message {
	return &Message{
		Type:     TypeAudio,
		Data:     base64.StdEncoding.EncodeToString(pcm16),
		MimeType: format.MimeType(),
	}
}

// Interrupt builds the barge-in control frame.
func Interrupt() *Message {
	return &Message{Type: TypeInterrupt}
}

// Encode serializes the message to a wire frame.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
