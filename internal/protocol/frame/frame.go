package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/entmux/internal/protocol/wire"
)

// PrefixLen is the size of the big-endian length prefix on stream transports.
const PrefixLen = 4

var (
	ErrShortFrame    = errors.New("frame: short frame")
	ErrFrameTooLarge = errors.New("frame: frame too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 1024 * 1024,
	}
}

// ReadFrame reads one length-prefixed wire message from r and returns its
// raw bytes (kind tag + header + payload).
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > limits.MaxFrameBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, limits.MaxFrameBytes)
	}
	if n < wire.KindTagLen {
		return nil, fmt.Errorf("%w: length %d below kind tag", ErrShortFrame, n)
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}
	return raw, nil
}

// WriteFrame writes msg to w behind a length prefix in a single Write call.
func WriteFrame(w io.Writer, msg wire.Message, limits Limits) error {
	buf, err := Encode(msg, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Encode returns the length-prefixed encoding of msg.
func Encode(msg wire.Message, limits Limits) ([]byte, error) {
	size := msg.Len()
	if uint64(size) > uint64(limits.MaxFrameBytes) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, limits.MaxFrameBytes)
	}
	buf := make([]byte, PrefixLen+size)
	binary.BigEndian.PutUint32(buf[0:PrefixLen], uint32(size))
	binary.BigEndian.PutUint32(buf[PrefixLen:PrefixLen+wire.KindTagLen], uint32(msg.Kind))
	copy(buf[PrefixLen+wire.KindTagLen:], msg.Payload)
	return buf, nil
}
