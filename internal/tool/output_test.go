package tool

import (
	"strings"
	"testing"
)

func TestCappedBuffer_UnderCap(t *testing.T) {
	b := newCappedBuffer(10)
	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("unexpected write result: n=%d err=%v", n, err)
	}
	if b.String() != "hello" || b.Truncated() {
		t.Fatalf("unexpected state: %q truncated=%v", b.String(), b.Truncated())
	}
}

func TestCappedBuffer_CutAtBoundary(t *testing.T) {
	b := newCappedBuffer(8)
	b.Write([]byte("hello"))
	// This chunk straddles the boundary; the leading bytes survive.
	n, _ := b.Write([]byte("world"))
	if n != 5 {
		t.Fatalf("writer must report full consumption, got %d", n)
	}
	if b.String() != "hellowor" {
		t.Fatalf("expected exact cut at boundary, got %q", b.String())
	}
	if !b.Truncated() {
		t.Fatal("expected truncated flag")
	}

	// Further writes are dropped entirely.
	b.Write([]byte("more"))
	if b.String() != "hellowor" {
		t.Fatalf("write past cap leaked through: %q", b.String())
	}
}

func TestCappedBuffer_PrefixPreserved(t *testing.T) {
	full := strings.Repeat("abcdefghij", 100)
	for _, cap := range []int{1, 9, 100, 999, 1000} {
		b := newCappedBuffer(cap)
		for i := 0; i < len(full); i += 7 {
			end := i + 7
			if end > len(full) {
				end = len(full)
			}
			b.Write([]byte(full[i:end]))
		}
		want := cap
		if want > len(full) {
			want = len(full)
		}
		if b.String() != full[:want] {
			t.Fatalf("cap %d: prefix not preserved verbatim", cap)
		}
		if (cap < len(full)) != b.Truncated() {
			t.Fatalf("cap %d: truncated=%v", cap, b.Truncated())
		}
	}
}
