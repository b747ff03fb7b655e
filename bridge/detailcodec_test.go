package bridge

import (
	"bytes"
	"strconv"
	"testing"

	"tak.dev/bridge/internal/errs"
)

var errBadBatteryEncoding = errs.New(errs.KindDecode, "battery extension expects exactly 1 byte")

func TestDetailCodecRoundTripsTrackAndUnknown(t *testing.T) {
	pos, err := NewPosition(1.5, -2.5, nil, nil, nil)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	course := 90.0
	kin, err := NewKinematics(&pos, &course)
	if err != nil {
		t.Fatalf("kinematics: %v", err)
	}
	track, err := NewTrack([]Kinematics{kin})
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	var detail CotDetail
	if err := detail.Add(TrackDetail{Track: track}); err != nil {
		t.Fatalf("add track: %v", err)
	}
	if err := detail.Add(UnknownDetail{XMLName: "remarks", Payload: []byte("hello")}); err != nil {
		t.Fatalf("add unknown: %v", err)
	}

	codec := NewDetailCodec(nil, 8)
	encoded, err := codec.Encode(detail)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(decoded.Elements))
	}
	td, ok := decoded.Elements[0].(TrackDetail)
	if !ok {
		t.Fatalf("expected first element to be TrackDetail, got %T", decoded.Elements[0])
	}
	if len(td.Track.Kinematics) != 1 || td.Track.Kinematics[0].Position.Lat != 1.5 {
		t.Fatalf("track round-trip mismatch: %+v", td.Track)
	}
	if *td.Track.Kinematics[0].Course != 90.0 {
		t.Fatalf("course round-trip mismatch: %v", *td.Track.Kinematics[0].Course)
	}
	ud, ok := decoded.Elements[1].(UnknownDetail)
	if !ok {
		t.Fatalf("expected second element to be UnknownDetail, got %T", decoded.Elements[1])
	}
	if ud.XMLName != "remarks" || string(ud.Payload) != "hello" {
		t.Fatalf("unknown round-trip mismatch: %+v", ud)
	}
}

func TestDetailCodecExtensionOpaquePassthroughWithoutCodec(t *testing.T) {
	var detail CotDetail
	if err := detail.Add(ExtensionDetail{Key: "unregistered", Bytes: []byte{0x01, 0x02, 0x03}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	codec := NewDetailCodec(nil, 8)
	encoded, err := codec.Encode(detail)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ed := decoded.Elements[0].(ExtensionDetail)
	if ed.Key != "unregistered" || !bytes.Equal(ed.Bytes, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("expected unchanged opaque passthrough, got %+v", ed)
	}
}

// batteryPercentCodec stores a battery percentage as a single clamped
// byte on the wire instead of the ASCII decimal string callers build
// it with, proving a registered codec actually transforms bytes rather
// than passing them through untouched.
type batteryPercentCodec struct{}

func (batteryPercentCodec) Decode(raw []byte) (ExtensionDetail, error) {
	if len(raw) != 1 {
		return ExtensionDetail{}, errBadBatteryEncoding
	}
	return ExtensionDetail{Key: "battery", Bytes: []byte(strconv.Itoa(int(raw[0])))}, nil
}

func (batteryPercentCodec) Encode(el ExtensionDetail) ([]byte, error) {
	pct, err := strconv.Atoi(string(el.Bytes))
	if err != nil {
		return nil, err
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return []byte{byte(pct)}, nil
}

func TestDetailCodecRegisteredExtensionRoundTripsThroughTypedCodec(t *testing.T) {
	registry := NewExtensionRegistry()
	registry.Register("battery", batteryPercentCodec{})
	codec := NewDetailCodec(registry, 8)

	var detail CotDetail
	if err := detail.Add(ExtensionDetail{Key: "battery", Bytes: []byte("87")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	encoded, err := codec.Encode(detail)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// 2-byte count + 1-byte kind + 2-byte key length + 7-byte key +
	// 4-byte payload length + 1-byte quantized payload.
	if len(encoded) != 2+1+2+len("battery")+4+1 {
		t.Fatalf("expected quantized 1-byte payload on the wire, got %d total bytes", len(encoded))
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ed := decoded.Elements[0].(ExtensionDetail)
	if ed.Key != "battery" || string(ed.Bytes) != "87" {
		t.Fatalf("expected round-tripped logical value 87, got %+v", ed)
	}
}

func TestDetailCodecDecodeRejectsOverMaxElements(t *testing.T) {
	var detail CotDetail
	_ = detail.Add(ExtensionDetail{Key: "a"})
	_ = detail.Add(ExtensionDetail{Key: "b"})
	_ = detail.Add(UnknownDetail{XMLName: "c"})

	codec := NewDetailCodec(nil, 8)
	encoded, err := codec.Encode(detail)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	strictCodec := NewDetailCodec(nil, 2)
	if _, err := strictCodec.Decode(encoded); err == nil {
		t.Fatal("expected LimitExceeded for element count above max_detail_elements")
	}
}
