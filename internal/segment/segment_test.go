package segment

import "testing"

func TestPushAndAt(t *testing.T) {
	s := WithCapacity(4)
	s.Push([]byte("a"), 100)
	s.Push([]byte("bb"), 110)
	s.Push([]byte("ccc"), 120)

	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	if s.Size() != 6 {
		t.Fatalf("expected size 6, got %d", s.Size())
	}
	if s.StartTime() != 100 || s.EndTime() != 120 {
		t.Fatalf("expected bounds [100,120], got [%d,%d]", s.StartTime(), s.EndTime())
	}

	got, err := s.At(1)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if string(got) != "bb" {
		t.Errorf("expected bb, got %q", got)
	}

	if _, err := s.At(3); err != ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestPushSentinelTimestamp(t *testing.T) {
	s := WithCapacity(1)
	s.Push([]byte("x"), 0)
	if s.StartTime() != 0 || s.EndTime() != 0 {
		t.Errorf("sentinel timestamp should not set bounds, got [%d,%d]", s.StartTime(), s.EndTime())
	}
	s.Push([]byte("y"), 50)
	if s.StartTime() != 50 || s.EndTime() != 50 {
		t.Errorf("expected bounds [50,50] after first real timestamp, got [%d,%d]", s.StartTime(), s.EndTime())
	}
}

func TestReadRange(t *testing.T) {
	s := WithCapacity(5)
	for i := 0; i < 5; i++ {
		s.Push([]byte{byte('a' + i)}, uint64(100+i))
	}

	payloads, shortfall := s.ReadRange(3, 4)
	if shortfall != 2 {
		t.Errorf("expected shortfall 2, got %d", shortfall)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}

	payloads, shortfall = s.ReadRange(0, 0)
	if shortfall != 0 || len(payloads) != 0 {
		t.Errorf("expected empty read with 0 shortfall, got %d payloads, shortfall %d", len(payloads), shortfall)
	}
}

func TestIndexForTimestamp(t *testing.T) {
	s := WithCapacity(4)
	s.Push([]byte("a"), 10)
	s.Push([]byte("b"), 20)
	s.Push([]byte("c"), 30)

	if got := s.IndexForTimestamp(20); got != 1 {
		t.Errorf("expected exact hit 1, got %d", got)
	}
	if got := s.IndexForTimestamp(25); got != 2 {
		t.Errorf("expected insertion point 2, got %d", got)
	}
	if got := s.IndexForTimestamp(100); got != 3 {
		t.Errorf("expected insertion point 3 (end), got %d", got)
	}
}

func TestTakeEntries(t *testing.T) {
	s := WithCapacity(2)
	s.Push([]byte("a"), 10)
	s.Push([]byte("b"), 20)

	payloads, timestamps := s.TakeEntries()
	if len(payloads) != 2 || len(timestamps) != 2 {
		t.Fatalf("expected 2 entries each, got %d/%d", len(payloads), len(timestamps))
	}
	if s.Len() != 0 || s.Size() != 0 {
		t.Errorf("expected segment emptied after TakeEntries, got len=%d size=%d", s.Len(), s.Size())
	}
}
