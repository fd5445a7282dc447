package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnknownCommand   = errors.New("Unknown command could not be parsed")
	ErrLineTooLong      = errors.New("Request is malformed, the line exceeds the length limit")
	ErrMalformedQuery   = errors.New("Query is malformed, it is empty or not valid UTF-8")
	ErrMalformedReading = errors.New("Response is not a temperature reading")
)

// DefaultMaxLineLength bounds a single socket protocol line, excluding the
// terminator.
const DefaultMaxLineLength = 1024

// ReadLine reads a single '\n' terminated line from r and returns it without
// the terminator (an optional '\r' is removed too).
//
// Lines longer than limit are consumed up to and including their terminator
// and reported as ErrLineTooLong, so the caller can answer them and carry on
// with the next line. A limit <= 0 disables the check.
//
// io.EOF is returned if the reader ends on a line boundary. If it ends part
// way through a line, the unterminated fragment is returned along with
// io.ErrUnexpectedEOF (an oversized fragment is dropped).
func ReadLine(r *bufio.Reader, limit int) (string, error) {
	var (
		line    []byte
		tooLong bool
	)

	for {
		chunk, err := r.ReadSlice('\n')

		if !tooLong {
			line = append(line, chunk...)

			// +2 leaves room for a "\r\n" terminator
			if limit > 0 && len(line) > limit+2 {
				tooLong = true
				line = nil
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return "", fmt.Errorf("%w: limit is %d bytes", ErrLineTooLong, limit)
			}

			line = RemoveTrailingCR(line[:len(line)-1])
			if limit > 0 && len(line) > limit {
				return "", fmt.Errorf("%w: limit is %d bytes", ErrLineTooLong, limit)
			}

			return string(line), nil

		case errors.Is(err, bufio.ErrBufferFull):
			// The line is longer than the reader's buffer, keep going
			continue

		case errors.Is(err, io.EOF):
			if len(line) == 0 && !tooLong {
				return "", io.EOF
			}

			if tooLong || (limit > 0 && len(line) > limit) {
				return "", io.ErrUnexpectedEOF
			}

			return string(RemoveTrailingCR(line)), io.ErrUnexpectedEOF

		default:
			return "", err
		}
	}
}

// ParseQuery decodes one thermometer datagram. Every datagram is a read
// request; the payload only has to be non-empty UTF-8 text.
func ParseQuery(datagram []byte) (Command, error) {
	payload := bytes.TrimSpace(datagram)

	if len(payload) == 0 || !utf8.Valid(payload) {
		return Command{Kind: Unknown}, ErrMalformedQuery
	}

	return Command{Kind: TemperatureQuery, Raw: string(payload)}, nil
}

// ParseResponse classifies a response line received from a server.
func ParseResponse(line string) Response {
	text := strings.TrimSpace(line)

	if strings.HasPrefix(text, PrefixUnknown) || strings.HasPrefix(text, PrefixErr) {
		return Response{Status: StatusErr, Text: text}
	}

	return Response{Status: StatusOk, Text: text}
}

// ParseTemperature extracts the value and unit of a thermometer reply such as
// "Temperature: 21.4 C".
func ParseTemperature(line string) (float64, string, error) {
	text := strings.TrimSpace(line)

	if !strings.HasPrefix(text, PrefixTemperature) {
		return 0, "", fmt.Errorf("Failed to parse '%s': %w", text, ErrMalformedReading)
	}

	fields := strings.Fields(strings.TrimPrefix(text, PrefixTemperature))
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("Failed to parse '%s': %w", text, ErrMalformedReading)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("Failed to parse '%s': %w", text, ErrMalformedReading)
	}

	return value, fields[1], nil
}

// RemoveTrailingCR strips one optional trailing '\r'.
func RemoveTrailingCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}

	return data
}
