package protocol

import (
	"io"
	"strings"
)

var (
	Terminal = []byte("\r\n")
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Format renders a Response as a single line of text without a terminator.
func Format(resp Response) string {
	return lineBreaks.Replace(resp.Text)
}

// WriteResponse writes the formatted response followed by "\r\n".
func WriteResponse(w io.Writer, resp Response) error {
	return WriteLine(w, Format(resp))
}

// WriteLine writes s followed by "\r\n" in a single Write call.
func WriteLine(w io.Writer, s string) error {
	b := make([]byte, 0, len(s)+len(Terminal))
	b = append(b, lineBreaks.Replace(s)...)
	b = append(b, Terminal...)

	_, err := w.Write(b)
	return err
}
