package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Matrix blob layout, little endian:
//
//	magic "PRMX" | version u16 | dtype u8 | reserved u8 | rows u32 | cols u32 |
//	ids token [16] | ids digest [32] | rows*cols float32
const (
	matrixMagic = "PRMX"

	// FormatVersion is the only matrix blob version this package reads and writes.
	FormatVersion uint16 = 1

	// DTypeFloat32 marks 32-bit IEEE 754 elements.
	DTypeFloat32 uint8 = 1

	// HeaderSize is the encoded header length in bytes.
	HeaderSize = 64
)

// Header is the decoded matrix blob header.
type Header struct {
	Version uint16
	DType   uint8
	Rows    int
	Cols    int
	// IDsToken names the id-list document that belongs to this matrix.
	IDsToken [16]byte
	// IDsDigest is the SHA-256 of that document.
	IDsDigest [32]byte
}

// EncodeMatrix serialises m with a header linking it to its id-list document.
func EncodeMatrix(m *Matrix, idsToken [16]byte, idsDigest [32]byte) []byte {
	buf := make([]byte, HeaderSize+len(m.data)*4)
	copy(buf[0:4], matrixMagic)
	binary.LittleEndian.PutUint16(buf[4:6], FormatVersion)
	buf[6] = DTypeFloat32
	buf[7] = 0
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.rows))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(m.cols))
	copy(buf[16:32], idsToken[:])
	copy(buf[32:64], idsDigest[:])
	off := HeaderSize
	for _, v := range m.data {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

// DecodeHeader parses and validates the fixed-size header.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if string(data[0:4]) != matrixMagic {
		return h, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[0:4])
	}
	h.Version = binary.LittleEndian.Uint16(data[4:6])
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, h.Version)
	}
	h.DType = data[6]
	if h.DType != DTypeFloat32 {
		return h, fmt.Errorf("%w: unsupported dtype %d", ErrCorrupt, h.DType)
	}
	h.Rows = int(binary.LittleEndian.Uint32(data[8:12]))
	h.Cols = int(binary.LittleEndian.Uint32(data[12:16]))
	copy(h.IDsToken[:], data[16:32])
	copy(h.IDsDigest[:], data[32:64])
	return h, nil
}

// DecodeMatrix parses a matrix blob produced by EncodeMatrix. Payloads whose
// length does not match the header shape are rejected.
func DecodeMatrix(data []byte) (*Matrix, Header, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, h, err
	}
	want := uint64(h.Rows) * uint64(h.Cols) * 4
	if got := uint64(len(data) - HeaderSize); got != want {
		return nil, h, fmt.Errorf("%w: payload is %d bytes, header declares %dx%d", ErrCorrupt, got, h.Rows, h.Cols)
	}
	m := &Matrix{rows: h.Rows, cols: h.Cols, data: make([]float32, h.Rows*h.Cols)}
	off := HeaderSize
	for i := range m.data {
		m.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}
	return m, h, nil
}
