package types

import "testing"

func TestStringListScanHandlesDriverShapes(t *testing.T) {
	var l StringList
	if err := l.Scan([]byte(`["a","b"]`)); err != nil || len(l) != 2 {
		t.Fatalf("bytes scan failed: %v %v", l, err)
	}
	if err := l.Scan(`["c"]`); err != nil || l[0] != "c" {
		t.Fatalf("string scan failed: %v %v", l, err)
	}
	if err := l.Scan(nil); err != nil || l == nil || len(l) != 0 {
		t.Fatalf("nil scan should yield empty list: %v %v", l, err)
	}
	if err := l.Scan(42); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestStringListValueNeverNull(t *testing.T) {
	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected empty json array, got %v %v", v, err)
	}
}
