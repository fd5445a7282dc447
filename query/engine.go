// Package query answers thermometer datagrams. It keeps no state between
// datagrams and is safe for concurrent use.
package query

import (
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/protocol"
)

type Engine struct {
	thermometer *device.Thermometer
	log         *zap.Logger
}

func NewEngine(thermometer *device.Thermometer, log *zap.Logger) *Engine {
	return &Engine{
		thermometer: thermometer,
		log:         log,
	}
}

// Respond produces the reply to one datagram. Malformed datagrams get an
// error reply instead of being dropped.
func (e *Engine) Respond(datagram []byte) protocol.Response {
	if _, err := protocol.ParseQuery(datagram); err != nil {
		e.log.Debug("Malformed query", zap.Int("size", len(datagram)), zap.Error(err))
		return protocol.MalformedQuery()
	}

	reading := e.thermometer.Read()

	return protocol.TemperatureReading(reading.Value, reading.Unit)
}
