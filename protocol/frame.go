package protocol

import (
	"bytes"
	"errors"
)

var ErrFrameTooLong = errors.New("frame payload too long")

// Encoder writes frames with a rolling sequence number
type Encoder struct {
	seq uint8
}

// EncodeFrame writes one frame whose payload is produced by body.
// A payload that does not fit in FrameLengthMax is discarded and
// ErrFrameTooLong returned; the sequence number is not consumed.
func (e *Encoder) EncodeFrame(output OutputBuffer, body func(output OutputBuffer)) error {
	cursor := output.CurPosition()

	// Header: length placeholder and sequence
	output.Output([]byte{0, FrameDest | e.seq})
	body(output)

	length := len(output.DataSince(cursor)) + FrameTrailerSize
	if length > FrameLengthMax {
		output.Truncate(cursor)
		return ErrFrameTooLong
	}
	output.Update(cursor, uint8(length))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		FrameValueSync,
	})

	e.seq = (e.seq + 1) & FrameSeqMask
	return nil
}

// FrameHandler receives the payload of each valid frame. The payload is
// only valid for the duration of the call.
type FrameHandler func(seq uint8, payload []byte)

// DecoderStats counts what a Decoder saw on the link
type DecoderStats struct {
	Frames  uint32 // Valid frames delivered
	Resyncs uint32 // Times the decoder lost framing
	Lost    uint32 // Frames missing according to the sequence numbers
}

// Decoder reassembles frames from a byte stream, resynchronizing on the
// sync byte after corruption
type Decoder struct {
	fifo         *FifoBuffer
	handler      FrameHandler
	synchronized bool
	started      bool
	expected     uint8
	stats        DecoderStats
}

// NewDecoder creates a Decoder delivering frames to handler
func NewDecoder(handler FrameHandler) *Decoder {
	return &Decoder{
		fifo:         NewFifoBuffer(4 * FrameLengthMax),
		handler:      handler,
		synchronized: true,
	}
}

// Write feeds received bytes to the decoder. It never fails, so a Decoder
// can be the destination of io.Copy.
func (d *Decoder) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := d.fifo.Write(p)
		p = p[n:]
		total += n
		d.process()
		if n == 0 && d.fifo.Free() == 0 {
			// Nothing could be consumed from a full buffer
			d.fifo.Reset()
			d.desync()
		}
	}
	return total, nil
}

func (d *Decoder) process() {
	data := d.fifo.Data()
	available := len(data)

	for len(data) > 0 {
		if !d.synchronized {
			// Skip garbage up to and including the next sync byte
			syncPos := bytes.IndexByte(data, FrameValueSync)
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.synchronized = true
			continue
		}

		// Skip leading sync bytes
		if data[0] == FrameValueSync {
			data = data[1:]
			continue
		}

		if len(data) < FrameLengthMin {
			break
		}

		length := int(data[FramePositionLen])
		if length < FrameLengthMin || length > FrameLengthMax {
			d.desync()
			continue
		}

		seq := data[FramePositionSeq]
		if seq&^FrameSeqMask != FrameDest {
			d.desync()
			continue
		}

		// Wait for full frame
		if len(data) < length {
			break
		}

		if data[length-FrameTrailerSync] != FrameValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[length-FrameTrailerCRC])<<8 |
			uint16(data[length-FrameTrailerCRC+1])
		if frameCRC != CRC16(data[:length-FrameTrailerSize]) {
			d.desync()
			continue
		}

		payload := data[FrameHeaderSize : length-FrameTrailerSize]
		data = data[length:]
		d.accept(seq&FrameSeqMask, payload)
	}

	d.fifo.Pop(available - len(data))
}

func (d *Decoder) desync() {
	if d.synchronized {
		d.stats.Resyncs++
	}
	d.synchronized = false
}

func (d *Decoder) accept(seq uint8, payload []byte) {
	if d.started && seq != d.expected {
		d.stats.Lost += uint32((seq - d.expected) & FrameSeqMask)
	}
	d.expected = (seq + 1) & FrameSeqMask
	d.started = true
	d.stats.Frames++
	if d.handler != nil {
		d.handler(seq, payload)
	}
}

// Stats returns the link counters
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}
