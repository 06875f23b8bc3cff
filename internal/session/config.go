package session

// Settings holds the per-call parameters a session is created with.
type Settings struct {
	Instructions    string
	Voice           string
	Temperature     float64
	MaxOutputTokens int
	Tools           []any

	TelephonyEncoding string
	TelephonyRate     int
	BackendRate       int

	// CaptureDir enables per-call WAV capture when non-empty.
	CaptureDir string
}

// defaultConfig builds the backend session configuration pushed on connect.
// Updates overlay it last-write-wins per key.
func defaultConfig(st Settings) map[string]any {
	toolChoice := "none"
	if len(st.Tools) > 0 {
		toolChoice = "auto"
	}
	tools := st.Tools
	if tools == nil {
		tools = []any{}
	}
	return map[string]any{
		"turn_detection": map[string]any{
			"type":                "server_vad",
			"threshold":           0.6,
			"prefix_padding_ms":   300,
			"silence_duration_ms": 500,
		},
		"input_audio_format":         "pcm16",
		"output_audio_format":        "pcm16",
		"temperature":                st.Temperature,
		"max_response_output_tokens": st.MaxOutputTokens,
		"instructions":               st.Instructions,
		"voice":                      st.Voice,
		"tool_choice":                toolChoice,
		"tools":                      tools,
	}
}

func cloneConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
