package encoding

import "testing"

func TestMask_RoundTrip(t *testing.T) {
	in := make([]uint8, 0, 200)
	in = append(in, CellTerrain, CellTerrain, CellTerrain, CellOpen, CellOpen, CellRoad)
	for i := 0; i < 50; i++ {
		in = append(in, CellOpen)
	}
	in = append(in, CellRoad, CellTerrain, CellTerrain, CellTerrain)

	enc := EncodeMask(in)
	out, err := DecodeMask(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeMask: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestMask_LengthChecked(t *testing.T) {
	enc := EncodeMask(make([]uint8, 10))
	if _, err := DecodeMask(enc, 9); err == nil {
		t.Fatalf("expected overlong mask rejected")
	}
	if _, err := DecodeMask(enc, 11); err == nil {
		t.Fatalf("expected short mask rejected")
	}
	if _, err := DecodeMask("!!", 0); err == nil {
		t.Fatalf("expected bad base64 rejected")
	}
}
