// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import "strconv"

// ErrorCode is a numeric failure code carried by resolved items and backend
// error signals. Codes are never raised as Go errors.
type ErrorCode int

const (
	CodeNone ErrorCode = 0

	// Backend codes follow the HTML media error numbering.
	CodeAborted            ErrorCode = 1
	CodeNetwork            ErrorCode = 2
	CodeDecode             ErrorCode = 3
	CodeSourceNotSupported ErrorCode = 4

	// Resolution codes.
	CodeUnsupportedFormat ErrorCode = 5
	CodeNoMedia           ErrorCode = 7
	CodeNoModel           ErrorCode = 8
	CodeDRMUnsupported    ErrorCode = 300
)

var codeText = map[ErrorCode]string{
	CodeNone:               "no error",
	CodeAborted:            "playback aborted",
	CodeNetwork:            "network error while loading media",
	CodeDecode:             "media could not be decoded",
	CodeSourceNotSupported: "source not supported by backend",
	CodeUnsupportedFormat:  "no playable media format",
	CodeNoMedia:            "no media scheduled",
	CodeNoModel:            "no media model configured",
	CodeDRMUnsupported:     "DRM system not supported",
}

// String returns a stable human readable text for the code.
func (c ErrorCode) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "unknown error " + strconv.Itoa(int(c))
}

// IsResolution reports whether the code originates from source resolution.
func (c ErrorCode) IsResolution() bool {
	switch c {
	case CodeUnsupportedFormat, CodeNoMedia, CodeNoModel, CodeDRMUnsupported:
		return true
	default:
		return false
	}
}
