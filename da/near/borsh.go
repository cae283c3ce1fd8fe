package near

import (
	"encoding/binary"
	"math/big"
)

// borshWriter appends Borsh encodings of the handful of NEAR types we hash and sign.
type borshWriter struct {
	buf []byte
}

func (w *borshWriter) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *borshWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *borshWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// u128 writes the low 128 bits of v, little endian.
func (w *borshWriter) u128(v *big.Int) {
	var be [16]byte
	if v != nil {
		v.FillBytes(be[:])
	}
	for i := 15; i >= 0; i-- {
		w.buf = append(w.buf, be[i])
	}
}

func (w *borshWriter) fixed(b []byte) { w.buf = append(w.buf, b...) }

func (w *borshWriter) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *borshWriter) string(s string) { w.bytes([]byte(s)) }

func (w *borshWriter) hashes(hs []CryptoHash) {
	w.u32(uint32(len(hs)))
	for _, h := range hs {
		w.fixed(h[:])
	}
}
