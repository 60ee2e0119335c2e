package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Cell classes of a zone terrain mask.
const (
	CellOpen    uint8 = 0
	CellTerrain uint8 = 1
	CellRoad    uint8 = 2
)

// EncodeMask run-length encodes a row-major cell mask into base64(varint
// pairs). The pairs are (class, run_len) repeated.
func EncodeMask(cells []uint8) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		c := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == c; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(c))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeMask reverses EncodeMask. want bounds the decoded length; 0 skips the
// check.
func DecodeMask(b64 string, want int) ([]uint8, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint8
	for i := 0; i < len(raw); {
		c, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if c > 0xFF {
			return nil, fmt.Errorf("cell class too large: %d", c)
		}
		if want > 0 && uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("mask longer than %d cells", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint8(c))
		}
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("mask has %d cells, want %d", len(out), want)
	}
	return out, nil
}
