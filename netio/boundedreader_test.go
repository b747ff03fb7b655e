package netio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"tak.dev/bridge/internal/errs"
)

func TestReadExactWithinBudget(t *testing.T) {
	br := NewBoundedReader(bytes.NewReader([]byte("hello")), 10)
	got, err := br.ReadExact(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	if br.Consumed() != 5 {
		t.Fatalf("consumed=%d", br.Consumed())
	}
}

func TestReadExactOverBudget(t *testing.T) {
	br := NewBoundedReader(bytes.NewReader([]byte("hello world")), 5)
	if _, err := br.ReadExact(6); err == nil {
		t.Fatal("expected LimitExceeded")
	} else {
		var e *errs.Error
		if !errors.As(err, &e) || e.Kind != errs.KindLimitExceeded {
			t.Fatalf("expected LimitExceeded, got %v", err)
		}
	}
}

func TestReadExactShortStreamIsIO(t *testing.T) {
	br := NewBoundedReader(bytes.NewReader([]byte("ab")), 10)
	if _, err := br.ReadExact(5); err == nil {
		t.Fatal("expected io error")
	}
}

func TestReadUpToShortRead(t *testing.T) {
	br := NewBoundedReader(bytes.NewReader([]byte("ab")), 10)
	got, err := br.ReadUpTo(5)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestReadToEndRespectsBudget(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	br := NewBoundedReader(bytes.NewReader(data), 50)
	_, err := br.ReadToEnd()
	if err == nil {
		t.Fatal("expected LimitExceeded when stream exceeds budget")
	}
}

func TestReadToEndExactBudget(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 50)
	br := NewBoundedReader(bytes.NewReader(data), 50)
	out, err := br.ReadToEnd()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 50 {
		t.Fatalf("len=%d", len(out))
	}
}

func TestDiscardExactAdvancesCounter(t *testing.T) {
	br := NewBoundedReader(bytes.NewReader([]byte("hello")), 10)
	if err := br.DiscardExact(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if br.Consumed() != 3 {
		t.Fatalf("consumed=%d", br.Consumed())
	}
}
