// Package media defines the wire format of the telephony media-streaming
// WebSocket: a metadata record on socket open, then JSON envelopes with a
// "kind" discriminator.
package media

import "encoding/json"

// Envelope kinds carried on the media socket.
const (
	KindAudioMetadata = "AudioMetadata"
	KindAudioData     = "AudioData"
	KindStopAudio     = "StopAudio"
)

// StreamMetadata is the first text frame on a media socket. It binds the
// socket to a provisioned call and may override the negotiated audio format.
type StreamMetadata struct {
	Kind             string `json:"kind,omitempty"`
	CallConnectionID string `json:"callConnectionId"`
	Encoding         string `json:"encoding,omitempty"`
	SampleRate       int    `json:"sampleRate,omitempty"`
	Channels         int    `json:"channels,omitempty"`
}

// AudioData carries one base64-encoded audio frame.
type AudioData struct {
	Data string `json:"data"`
}

// StreamMessage is the envelope for every frame after the metadata record.
// Exactly one of AudioData / StopAudio is set, per Kind.
type StreamMessage struct {
	Kind      string     `json:"kind"`
	AudioData *AudioData `json:"audioData,omitempty"`
	StopAudio *struct{}  `json:"stopAudio,omitempty"`
}

// ParseMetadata decodes the metadata first-frame.
func ParseMetadata(data []byte) (StreamMetadata, error) {
	var meta StreamMetadata
	err := json.Unmarshal(data, &meta)
	return meta, err
}

// AudioFrame builds the outbound AudioData envelope around a base64 payload.
func AudioFrame(b64 string) StreamMessage {
	return StreamMessage{Kind: KindAudioData, AudioData: &AudioData{Data: b64}}
}

// StopFrame builds the outbound StopAudio envelope, sent to bar the
// telephony side from playing any further buffered audio.
func StopFrame() StreamMessage {
	return StreamMessage{Kind: KindStopAudio, StopAudio: &struct{}{}}
}
