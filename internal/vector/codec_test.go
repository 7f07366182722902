package vector

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestCodec_RoundTripBitExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const rows, cols = 37, 11
	m := NewMatrix(cols)
	for i := 0; i < rows; i++ {
		r := make([]float32, cols)
		for j := range r {
			r[j] = math.Float32frombits(rng.Uint32())
		}
		if err := m.AppendRow(r); err != nil {
			t.Fatal(err)
		}
	}
	specials := []float32{0, float32(math.Copysign(0, -1)), float32(math.Inf(1)), float32(math.Inf(-1)), math.SmallestNonzeroFloat32, math.MaxFloat32, 1, -1, 0.1, -0.7071068, 3.3e-20}
	_ = m.SetRow(0, specials)

	token := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	digest := sha256.Sum256([]byte(`["a","b"]`))
	data := EncodeMatrix(m, token, digest)

	got, h, err := DecodeMatrix(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.Rows != rows || h.Cols != cols || h.IDsToken != token || h.IDsDigest != digest {
		t.Fatalf("header = %+v", h)
	}
	for i := range m.data {
		if math.Float32bits(got.data[i]) != math.Float32bits(m.data[i]) {
			t.Fatalf("element %d: got bits %08x, want %08x", i, math.Float32bits(got.data[i]), math.Float32bits(m.data[i]))
		}
	}
	if !bytes.Equal(EncodeMatrix(got, token, digest), data) {
		t.Error("re-encoding a decoded matrix changed the bytes")
	}
}

func TestCodec_EmptyMatrix(t *testing.T) {
	data := EncodeMatrix(NewMatrix(768), [16]byte{}, [32]byte{})
	if len(data) != HeaderSize {
		t.Fatalf("encoded length = %d, want %d", len(data), HeaderSize)
	}
	m, _, err := DecodeMatrix(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 0 || m.Cols() != 768 {
		t.Errorf("decoded %dx%d", m.Rows(), m.Cols())
	}
}

func TestCodec_RejectsCorruptInput(t *testing.T) {
	m, _ := MatrixFromRows(2, [][]float32{{1, 0}, {0, 1}})
	valid := EncodeMatrix(m, [16]byte{}, [32]byte{})

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return f(b)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:HeaderSize-1]},
		{"bad magic", mutate(func(b []byte) []byte { copy(b, "XXXX"); return b })},
		{"future version", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint16(b[4:6], 2); return b })},
		{"unknown dtype", mutate(func(b []byte) []byte { b[6] = 9; return b })},
		{"truncated payload", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0, 0, 0, 0)},
		{"rows overstated", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[8:12], 3); return b })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeMatrix(tt.data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}
