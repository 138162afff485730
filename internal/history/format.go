package history

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Format is how a payload is presented.
type Format string

// Payload formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHex  Format = "hex"
)

// ParseFormat maps a client-supplied format name to a Format. Empty means
// text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatHex:
		return FormatHex, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidPayload, s)
	}
}

// DetectFormat classifies a received payload: json when it is a valid JSON
// document, text when it is valid UTF-8, hex otherwise.
func DetectFormat(payload []byte) Format {
	if len(payload) > 0 && json.Valid(payload) {
		return FormatJSON
	}
	if utf8.Valid(payload) {
		return FormatText
	}
	return FormatHex
}

// DecodePayload converts a client payload in the given format to the bytes
// sent to the broker. Hex input may contain spaces between bytes.
func DecodePayload(payload string, format Format) ([]byte, error) {
	switch format {
	case FormatHex:
		b, err := hex.DecodeString(strings.ReplaceAll(payload, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return b, nil
	case FormatJSON:
		if !json.Valid([]byte(payload)) {
			return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
		}
		return []byte(payload), nil
	default:
		return []byte(payload), nil
	}
}
