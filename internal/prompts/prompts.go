package prompts

import (
	"fmt"
	"os"
	"strings"
)

const DefaultInstructions = "You are a helpful voice assistant on a phone call. Keep responses concise and conversational."

// Load reads system instructions from path, falling back to the default when
// path is empty.
func Load(path string) (string, error) {
	if path == "" {
		return DefaultInstructions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
