package protocol

import (
	"bytes"
	"testing"
)

type received struct {
	seq     uint8
	payload []byte
}

func collect(out *[]received) FrameHandler {
	return func(seq uint8, payload []byte) {
		*out = append(*out, received{seq: seq, payload: append([]byte(nil), payload...)})
	}
}

func encodeFrames(t *testing.T, enc *Encoder, payloads ...[]byte) []byte {
	t.Helper()
	output := NewScratchOutput()
	for _, p := range payloads {
		p := p
		if err := enc.EncodeFrame(output, func(o OutputBuffer) { o.Output(p) }); err != nil {
			t.Fatalf("EncodeFrame failed: %v", err)
		}
	}
	return append([]byte(nil), output.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	var enc Encoder
	wire := encodeFrames(t, &enc, []byte{1, 2, 3})

	if len(wire) != 8 {
		t.Fatalf("Expected 8 byte frame, got %d: %v", len(wire), wire)
	}
	if wire[FramePositionLen] != 8 {
		t.Errorf("Expected length byte 8, got %d", wire[FramePositionLen])
	}
	if wire[FramePositionSeq] != FrameDest {
		t.Errorf("Expected first sequence 0x%02X, got 0x%02X", FrameDest, wire[FramePositionSeq])
	}
	if wire[len(wire)-1] != FrameValueSync {
		t.Errorf("Expected trailing sync byte, got 0x%02X", wire[len(wire)-1])
	}
	crc := CRC16(wire[:len(wire)-FrameTrailerSize])
	if wire[5] != uint8(crc>>8) || wire[6] != uint8(crc) {
		t.Errorf("CRC mismatch: frame has %02X%02X, expected %04X", wire[5], wire[6], crc)
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	var enc Encoder
	wire := encodeFrames(t, &enc, []byte{1}, []byte{2, 3}, []byte{})

	var got []received
	dec := NewDecoder(collect(&got))
	if _, err := dec.Write(wire); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(got))
	}
	for i, want := range [][]byte{{1}, {2, 3}, {}} {
		if got[i].seq != uint8(i) {
			t.Errorf("Frame %d: expected seq %d, got %d", i, i, got[i].seq)
		}
		if !bytes.Equal(got[i].payload, want) {
			t.Errorf("Frame %d: expected payload %v, got %v", i, want, got[i].payload)
		}
	}
	if stats := dec.Stats(); stats.Frames != 3 || stats.Resyncs != 0 || stats.Lost != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	var enc Encoder
	wire := encodeFrames(t, &enc, []byte{10, 20, 30}, []byte{40})

	var got []received
	dec := NewDecoder(collect(&got))
	for _, b := range wire {
		dec.Write([]byte{b})
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[1].payload, []byte{40}) {
		t.Errorf("Expected second payload [40], got %v", got[1].payload)
	}
}

func TestDecoderResyncAfterCorruption(t *testing.T) {
	var enc Encoder
	first := encodeFrames(t, &enc, []byte{1, 1})
	second := encodeFrames(t, &enc, []byte{2, 2})
	third := encodeFrames(t, &enc, []byte{3, 3})

	// Garbage before the first frame, and a flipped payload bit in the
	// second frame so its CRC fails
	second[2] ^= 0x01

	stream := append(append(append([]byte{0x00, 0x42, FrameValueSync}, first...), second...), third...)

	var got []received
	dec := NewDecoder(collect(&got))
	dec.Write(stream)

	if len(got) != 2 {
		t.Fatalf("Expected 2 valid frames, got %d", len(got))
	}
	if !bytes.Equal(got[0].payload, []byte{1, 1}) || !bytes.Equal(got[1].payload, []byte{3, 3}) {
		t.Errorf("Unexpected payloads: %v %v", got[0].payload, got[1].payload)
	}

	stats := dec.Stats()
	if stats.Resyncs == 0 {
		t.Error("Expected at least one resync")
	}
	if stats.Lost != 1 {
		t.Errorf("Expected 1 lost frame from the sequence gap, got %d", stats.Lost)
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	var enc Encoder
	output := NewScratchOutput()
	output.Output([]byte{0xAA})

	err := enc.EncodeFrame(output, func(o OutputBuffer) {
		o.Output(make([]byte, FrameLengthMax))
	})
	if err != ErrFrameTooLong {
		t.Fatalf("Expected ErrFrameTooLong, got %v", err)
	}
	if output.CurPosition() != 1 {
		t.Errorf("Expected output rolled back to 1 byte, got %d", output.CurPosition())
	}

	// Sequence number was not consumed
	wire := encodeFrames(t, &enc, []byte{1})
	if wire[FramePositionSeq] != FrameDest {
		t.Errorf("Expected seq 0x%02X after failed frame, got 0x%02X", FrameDest, wire[FramePositionSeq])
	}
}
