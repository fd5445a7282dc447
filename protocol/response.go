package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ResponseStatus classifies a Response as success or failure.
type ResponseStatus int

const (
	StatusOk ResponseStatus = iota
	StatusErr
)

func (s ResponseStatus) String() string {
	if s == StatusErr {
		return "err"
	}

	return "ok"
}

const (
	PrefixUnknown     = "Unknown command:"
	PrefixErr         = "Error:"
	PrefixStatus      = "Status:"
	PrefixTemperature = "Temperature:"
	PrefixTurned      = "Socket turned"
)

// Response is the reply to exactly one Command or datagram.
type Response struct {
	Status ResponseStatus
	Text   string
}

func Ok(text string) Response {
	return Response{Status: StatusOk, Text: text}
}

func Errorf(format string, args ...interface{}) Response {
	return Response{Status: StatusErr, Text: fmt.Sprintf(format, args...)}
}

func (r Response) IsErr() bool {
	return r.Status == StatusErr
}

// ErrorOrNil returns an error if the response reports one. Otherwise it
// returns nil.
func (r Response) ErrorOrNil() error {
	if r.IsErr() {
		return errors.New(r.Text)
	}

	return nil
}

func PowerChanged(state fmt.Stringer) Response {
	return Ok(fmt.Sprintf("%s %s", PrefixTurned, state))
}

func StatusReport(state fmt.Stringer) Response {
	return Ok(fmt.Sprintf("%s %s", PrefixStatus, state))
}

func HelpText() Response {
	return Ok("Available commands: " + strings.Join(keywords, ", "))
}

func Goodbye() Response {
	return Ok("Goodbye")
}

func UnknownCommand(raw string) Response {
	return Errorf("%s %s", PrefixUnknown, raw)
}

func LineTooLong(limit int) Response {
	return Errorf("%s command exceeds %d bytes", PrefixErr, limit)
}

func InternalError(err error) Response {
	return Errorf("%s %s", PrefixErr, err)
}

func TemperatureReading(value float64, unit string) Response {
	return Ok(fmt.Sprintf("%s %.1f %s", PrefixTemperature, value, unit))
}

func MalformedQuery() Response {
	return Errorf("%s malformed query", PrefixErr)
}
