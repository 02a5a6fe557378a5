package intset

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromotionScenario(t *testing.T) {
	s := New()
	s.Insert(32)
	if s.Encoding() != Enc16 {
		t.Fatalf("expected Enc16 after inserting 32, got %d", s.Encoding())
	}
	s.Insert(65535)
	if s.Encoding() != Enc32 {
		t.Fatalf("expected Enc32 after inserting 65535, got %d", s.Encoding())
	}
	if !s.Contains(32) || !s.Contains(65535) {
		t.Fatal("lost an element across promotion to Enc32")
	}
	s.Insert(-4294967295)
	if s.Encoding() != Enc64 {
		t.Fatalf("expected Enc64 after inserting -4294967295, got %d", s.Encoding())
	}
	if !s.Contains(32) {
		t.Fatal("lost 32 across promotion to Enc64")
	}
	if !s.Contains(65535) || !s.Contains(-4294967295) {
		t.Fatal("lost an element across promotion to Enc64")
	}
	got := s.Slice()
	want := []int64{-4294967295, 32, 65535}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestContainsFalseForAbsent(t *testing.T) {
	s := New()
	for _, v := range []int64{5, 10, 15} {
		s.Insert(v)
	}
	if s.Contains(7) {
		t.Fatal("7 was never inserted")
	}
	if s.Contains(math.MaxInt64) {
		t.Fatal("MaxInt64 was never inserted")
	}
}

func TestEncodingNeverDemotesOnRemove(t *testing.T) {
	s := New()
	s.Insert(1)
	s.Insert(100000) // forces Enc32
	if s.Encoding() != Enc32 {
		t.Fatal("expected Enc32")
	}
	if !s.Remove(100000) {
		t.Fatal("expected removal to succeed")
	}
	if s.Encoding() != Enc32 {
		t.Fatal("encoding must not demote after removing the element that forced promotion")
	}
	if !s.Contains(1) {
		t.Fatal("remaining element must survive")
	}
}

func TestInsertDuplicateReportsNotInserted(t *testing.T) {
	s := New()
	if !s.Insert(5) {
		t.Fatal("first insert of 5 should report inserted")
	}
	if s.Insert(5) {
		t.Fatal("second insert of 5 should report not inserted")
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
}

func TestRemoveAbsentReportsFalse(t *testing.T) {
	s := New()
	s.Insert(1)
	if s.Remove(2) {
		t.Fatal("removing an absent element should report false")
	}
}

func TestOrderedAfterRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New()
	present := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		v := int64(rng.Intn(4000) - 2000)
		if rng.Intn(3) == 0 && len(present) > 0 {
			// Remove an existing element at random.
			idx := rng.Intn(s.Len())
			got, _ := s.Get(idx)
			s.Remove(got)
			delete(present, got)
			continue
		}
		if s.Insert(v) {
			present[v] = true
		}
	}
	slice := s.Slice()
	for i := 1; i < len(slice); i++ {
		if slice[i-1] >= slice[i] {
			t.Fatalf("set not strictly ascending at index %d: %v", i, slice)
		}
	}
	if len(slice) != len(present) {
		t.Fatalf("length mismatch: set has %d, expected %d", len(slice), len(present))
	}
	for v := range present {
		if !s.Contains(v) {
			t.Fatalf("missing expected member %d", v)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s := New()
	vals := []int64{-1000000000000, -5, 0, 5, 1000000000000}
	for _, v := range vals {
		s.Insert(v)
	}
	blob := s.Marshal()
	decoded, err := Unmarshal(blob)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Encoding() != s.Encoding() {
		t.Fatalf("encoding mismatch after round trip: %d vs %d", decoded.Encoding(), s.Encoding())
	}
	got := decoded.Slice()
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	if len(got) != len(vals) {
		t.Fatalf("got %v want %v", got, vals)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Fatalf("got %v want %v", got, vals)
		}
	}
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	if _, err := Unmarshal([]byte{1, 2, 3}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestUnmarshalRejectsUnknownEncoding(t *testing.T) {
	blob := make([]byte, 8)
	blob[0] = 3 // not 2, 4, or 8
	if _, err := Unmarshal(blob); err != ErrUnknownEncoding {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	s := New()
	for _, v := range []int64{5, -3, 1 << 20, -(1 << 40), 0} {
		s.Insert(v)
	}

	blob := s.Marshal()
	restored, err := Unmarshal(blob)
	require.NoError(t, err)
	require.Equal(t, s.Len(), restored.Len())

	for i := 0; i < s.Len(); i++ {
		want, ok := s.Get(i)
		require.True(t, ok)
		got, ok := restored.Get(i)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestWidthMonotonicAcrossLifetime(t *testing.T) {
	s := New()
	prev := s.Encoding()
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		s.Insert(int64(rng.Intn(2) * (1 << (uint(i%60)))))
		if s.Encoding() < prev {
			t.Fatalf("encoding regressed from %d to %d", prev, s.Encoding())
		}
		prev = s.Encoding()
	}
}
