package testsupport

import "testing"

func TestPacketsSumsTo197(t *testing.T) {
	packets := Packets()
	var sum int
	for _, p := range packets {
		sum += len(p)
	}
	if sum != 197 {
		t.Fatalf("expected 197 total bytes, got %d", sum)
	}
	if len(packets) != 16 {
		t.Fatalf("expected 16 payloads, got %d", len(packets))
	}
}

func TestAssertNonDecreasingAcceptsSentinels(t *testing.T) {
	AssertNonDecreasing(t, []uint64{0, 1, 0, 2, 2, 0, 5})
}

func TestAssertPayloadsEqualMatchesSelf(t *testing.T) {
	packets := Packets()
	AssertPayloadsEqual(t, packets, packets)
}
