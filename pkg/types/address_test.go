package types

import "testing"

func TestParseAddressNormalizes(t *testing.T) {
	addr, err := ParseAddress("0x3CDD5be5B0C62F4B43dbF76f71Adb1B764Cf2268")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "0x3cdd5be5b0c62f4b43dbf76f71adb1b764cf2268" {
		t.Fatalf("address not lowercased: %s", addr)
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"3cdd5be5b0c62f4b43dbf76f71adb1b764cf2268",
		"0x3cdd",
		"0xzzdd5be5b0c62f4b43dbf76f71adb1b764cf2268",
	} {
		if _, err := ParseAddress(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestAddressBytesRoundTrip(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := addr.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	back, err := AddressFromBytes(b)
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	if back != addr {
		t.Fatalf("round trip mismatch: %s != %s", back, addr)
	}
}

func TestAddressIsZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Fatal("zero address should report zero")
	}
	if !Address("").IsZero() {
		t.Fatal("empty address should report zero")
	}
	addr := Address("0x00000000000000000000000000000000000000aa")
	if addr.IsZero() {
		t.Fatal("non-zero address misreported")
	}
}
