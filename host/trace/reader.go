// Package trace decodes the time driver's trace frames on the host.
package trace

import (
	"io"

	"hartclock/core"
	"hartclock/host/logging"
	"hartclock/protocol"
)

// Handler receives each decoded event
type Handler func(e core.TraceEvent)

// Stats counts what the reader has seen on the link
type Stats struct {
	Events  int
	Invalid int
	Link    protocol.DecoderStats
}

// Reader turns a byte stream of trace frames into events. Each event is
// logged and passed to the handler, if any.
type Reader struct {
	decoder *protocol.Decoder
	log     *logging.Logger
	handler Handler
	events  int
	invalid int
}

// NewReader creates a reader. Both logger and handler may be nil.
func NewReader(logger *logging.Logger, handler Handler) *Reader {
	r := &Reader{log: logger, handler: handler}
	r.decoder = protocol.NewDecoder(r.frame)
	return r
}

func (r *Reader) frame(seq uint8, payload []byte) {
	e, err := core.DecodeTrace(&payload)
	if err != nil {
		r.invalid++
		r.log.Warning().Int("seq", int(seq)).Err(err).Log("bad trace frame")
		return
	}
	r.events++

	r.log.Info().
		Str("kind", e.Kind.String()).
		Int("alarm", int(e.Alarm)).
		Int("hart", int(e.Hart)).
		Uint64("now", e.Now).
		Uint64("value", e.Value).
		Log("timer")
	if r.handler != nil {
		r.handler(e)
	}
}

// Write feeds raw link bytes to the decoder
func (r *Reader) Write(p []byte) (int, error) {
	return r.decoder.Write(p)
}

// Run copies src into the decoder until src is exhausted or fails
func (r *Reader) Run(src io.Reader) error {
	_, err := io.Copy(r, src)
	return err
}

// Stats returns the reader's counters
func (r *Reader) Stats() Stats {
	return Stats{
		Events:  r.events,
		Invalid: r.invalid,
		Link:    r.decoder.Stats(),
	}
}
