package audit

import (
	"os"
	"strconv"
	"testing"
)

func intCodec() Codec[int] {
	return Codec[int]{
		Encode: func(v int) []byte { return []byte(strconv.Itoa(v)) },
		Decode: func(b []byte) (int, error) { return strconv.Atoi(string(b)) },
	}
}

func openTestLog(t *testing.T) *Log[int] {
	t.Helper()
	dir, err := os.MkdirTemp("", "pq-audit-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	l, err := Open(dir, intCodec())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndGet(t *testing.T) {
	l := openTestLog(t)

	if err := l.Record(1, 1000, 42); err != nil {
		t.Fatalf("Record: %v", err)
	}

	poppedAt, value, err := l.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if poppedAt != 1000 || value != 42 {
		t.Fatalf("Get(1) = (%d, %d), want (1000, 42)", poppedAt, value)
	}
}

func TestScanFromOrdersBySequence(t *testing.T) {
	l := openTestLog(t)

	for seq := uint64(1); seq <= 5; seq++ {
		if err := l.Record(seq, int64(seq)*100, int(seq)*10); err != nil {
			t.Fatalf("Record(%d): %v", seq, err)
		}
	}

	var seqs []uint64
	err := l.ScanFrom(3, func(seq uint64, poppedAt int64, value int) error {
		seqs = append(seqs, seq)
		if poppedAt != int64(seq)*100 || value != int(seq)*10 {
			t.Fatalf("replayed seq %d with mismatched payload", seq)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ScanFrom: %v", err)
	}

	want := []uint64{3, 4, 5}
	if len(seqs) != len(want) {
		t.Fatalf("ScanFrom visited %v, want %v", seqs, want)
	}
	for i := range want {
		if seqs[i] != want[i] {
			t.Fatalf("ScanFrom visited %v, want %v", seqs, want)
		}
	}
}

func TestScanFromEmptyLog(t *testing.T) {
	l := openTestLog(t)
	visited := 0
	if err := l.ScanFrom(0, func(uint64, int64, int) error { visited++; return nil }); err != nil {
		t.Fatalf("ScanFrom: %v", err)
	}
	if visited != 0 {
		t.Fatalf("ScanFrom visited %d records in an empty log", visited)
	}
}
