package limits

import "testing"

func validBase() Limits {
	return Limits{
		MaxFrameBytes:     1024,
		MaxXMLScanBytes:   1024,
		MaxProtobufBytes:  1024,
		MaxQueueMessages:  16,
		MaxQueueBytes:     2048,
		MaxDetailElements: 8,
	}
}

func TestValidateAccepts(t *testing.T) {
	l, err := validBase().Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Valid() {
		t.Fatal("expected Valid() true after Validate")
	}
}

func TestValidateRejectsZero(t *testing.T) {
	l := validBase()
	l.MaxFrameBytes = 0
	if _, err := l.Validate(); err == nil {
		t.Fatal("expected error for zero max_frame_bytes")
	}
}

func TestValidateRejectsScanExceedsFrame(t *testing.T) {
	l := validBase()
	l.MaxXMLScanBytes = l.MaxFrameBytes + 1
	if _, err := l.Validate(); err == nil {
		t.Fatal("expected error for scan > frame")
	}
}

func TestValidateRejectsProtobufExceedsFrame(t *testing.T) {
	l := validBase()
	l.MaxProtobufBytes = l.MaxFrameBytes + 1
	if _, err := l.Validate(); err == nil {
		t.Fatal("expected error for protobuf > frame")
	}
}

func TestValidateRejectsQueueBytesBelowFrame(t *testing.T) {
	l := validBase()
	l.MaxQueueBytes = l.MaxFrameBytes - 1
	if _, err := l.Validate(); err == nil {
		t.Fatal("expected error for queue_bytes < frame_bytes")
	}
}

func TestValidateRejectsQueueMessagesExceedsQueueBytes(t *testing.T) {
	l := validBase()
	l.MaxQueueMessages = l.MaxQueueBytes + 1
	if _, err := l.Validate(); err == nil {
		t.Fatal("expected error for queue_messages > queue_bytes")
	}
}

func TestBoundaryExactlyEqual(t *testing.T) {
	l := validBase()
	l.MaxXMLScanBytes = l.MaxFrameBytes
	l.MaxProtobufBytes = l.MaxFrameBytes
	l.MaxQueueBytes = l.MaxFrameBytes
	l.MaxQueueMessages = l.MaxQueueBytes
	if _, err := l.Validate(); err != nil {
		t.Fatalf("exact-boundary limits should validate: %v", err)
	}
}
