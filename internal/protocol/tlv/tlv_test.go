package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		U32(1, 12),
		String(2, "rat"),
		{ID: 9999, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	b := EncodeFields(in)
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(out))
	}
	if out[2].ID != 9999 || out[2].Type != TypeBytes || !bytes.Equal(out[2].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[2])
	}
	if v, err := GetU32(out, 1); err != nil || v != 12 {
		t.Fatalf("u32 field: v=%d err=%v", v, err)
	}
	if v, err := GetString(out, 2); err != nil || v != "rat" {
		t.Fatalf("string field: v=%q err=%v", v, err)
	}
}

func TestEncodeFieldsMatchesPerFieldEncoding(t *testing.T) {
	a, b := U32(1, 5), Bool(3, true)
	want := append(EncodeField(a), EncodeField(b)...)
	if got := EncodeFields([]Field{a, b}); !bytes.Equal(got, want) {
		t.Fatalf("encode mismatch: got=%v want=%v", got, want)
	}
}

func TestTypedGettersReportMissingAndMismatch(t *testing.T) {
	fields := []Field{String(1, "x")}
	if _, err := GetU32(fields, 1); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := GetString(fields, 2); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}
