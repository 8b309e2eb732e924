// Package compress frames cached feature blocks with LZ4 or ZSTD.
//
// Frame format:
//
//	[Type uint8][UncompressedSize uint32][CompressedSize uint32][Data...]
//
// CompressedSize == 0 means Data is stored raw. Blocks that do not shrink
// below 90% of their input are stored raw.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks raw.
	None Type = 0
	// LZ4 is fast block compression, good for hot data.
	LZ4 Type = 1
	// ZSTD trades speed for ratio.
	ZSTD Type = 2
)

const headerSize = 9

var (
	// ErrCorrupt is returned when a frame cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt frame")

	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

// ParseType maps a config name ("none", "lz4", "zstd") to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", name)
	}
}

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode frames data using t.
func Encode(data []byte, t Type) ([]byte, error) {
	var packed []byte

	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n] // n == 0 means incompressible
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, headerSize+len(data))
		out[0] = byte(t)
		binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(packed))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(packed)))
	copy(out[headerSize:], packed)
	return out, nil
}

// Decode reverses Encode. The algorithm is read from the frame header.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, ErrCorrupt
	}

	t := Type(frame[0])
	rawSize := binary.LittleEndian.Uint32(frame[1:])
	packedSize := binary.LittleEndian.Uint32(frame[5:])
	body := frame[headerSize:]

	if packedSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, ErrCorrupt
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < packedSize {
		return nil, ErrCorrupt
	}
	body = body[:packedSize]

	out := make([]byte, rawSize)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != rawSize {
			return nil, ErrCorrupt
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != rawSize {
			return nil, ErrCorrupt
		}
		return decoded, nil
	default:
		return nil, ErrCorrupt
	}
}
