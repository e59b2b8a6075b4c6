// Package protocol frames the time driver's trace stream for the debug
// serial link. A frame is a length byte, a sequence byte, a VLQ payload, a
// CRC16 and a trailing sync byte, the same layout Klipper uses on the wire.
package protocol

// Frame layout constants
const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	FramePositionLen = 0
	FramePositionSeq = 1
	FrameTrailerCRC  = 3
	FrameTrailerSync = 1
	FrameValueSync   = 0x7E

	// Sequence byte: fixed high nibble, rolling low nibble
	FrameDest    = 0x10
	FrameSeqMask = 0x0F

	// ScratchMax is the capacity of a ScratchOutput
	ScratchMax = 512
)
