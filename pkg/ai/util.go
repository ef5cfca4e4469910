package ai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TruncateTokens cuts text down to at most maxTokens tokens under the given
// tiktoken encoding. Text at or under the limit is returned unchanged.
func TruncateTokens(text string, encoding string, maxTokens int) (string, error) {
	if maxTokens <= 0 || strings.TrimSpace(text) == "" {
		return text, nil
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return "", fmt.Errorf("unknown token encoding %q: %w", encoding, err)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return enc.Decode(tokens[:maxTokens]), nil
}

// CountTokens returns the token count of text under the given encoding.
func CountTokens(text string, encoding string) (int, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return 0, fmt.Errorf("unknown token encoding %q: %w", encoding, err)
	}
	return len(enc.Encode(text, nil, nil)), nil
}
