package parse

import (
	"reflect"
	"testing"
)

func TestUptime(t *testing.T) {
	if got := Uptime("up 2 days, 3 hours, 4 minutes\n"); got != "2 days, 3 hours, 4 minutes" {
		t.Errorf("Uptime() = %q", got)
	}
}

func TestThrottled(t *testing.T) {
	tests := []struct {
		in     string
		raw    uint64
		wantOK bool
	}{
		{"throttled=0x0", 0, true},
		{"throttled=0x50005", 0x50005, true},
		{"throttled=", 0, false},
		{"VCHI initialization failed", 0, false},
	}
	for _, tt := range tests {
		raw, ok := Throttled(tt.in)
		if raw != tt.raw || ok != tt.wantOK {
			t.Errorf("Throttled(%q) = %#x, %v; want %#x, %v", tt.in, raw, ok, tt.raw, tt.wantOK)
		}
	}
}

func TestDirectories(t *testing.T) {
	text := `total 16
drwxr-xr-x  4 root root 4096 Mar  1 10:00 .
drwxr-xr-x 18 root root 4096 Mar  1 10:00 ..
drwxr-xr-x 22 pi   pi   4096 Mar  2 11:00 pi
drwxr-xr-x  3 lee  lee  4096 Mar  2 11:00 lee`

	got := Directories(text)
	if !reflect.DeepEqual(got, []string{"pi", "lee"}) {
		t.Errorf("Directories() = %v", got)
	}
	if got := Directories(""); got == nil || len(got) != 0 {
		t.Errorf("Directories(empty) = %#v", got)
	}
}

func TestHex(t *testing.T) {
	if v, ok := HexByte("0x14\n"); !ok || v != 20 {
		t.Errorf("HexByte(0x14) = %d, %v", v, ok)
	}
	if _, ok := HexByte("Error: Read failed"); ok {
		t.Error("HexByte(error text) ok")
	}
	if _, ok := HexByte("0x1ff"); ok {
		t.Error("HexByte(overflow) ok")
	}
	if v, ok := HexWord("0x5a32"); !ok || v != 0x5a32 {
		t.Errorf("HexWord() = %#x, %v", v, ok)
	}
}

func TestNumbers(t *testing.T) {
	if Float("12.5%") != 12.5 || Float("NaN") != 0 || Float("") != 0 {
		t.Error("Float fallbacks")
	}
	if Int("19%") != 19 || Int("1.5") != 0 {
		t.Error("Int fallbacks")
	}
	if Uint("-3") != 0 || Uint(" 42 ") != 42 {
		t.Error("Uint fallbacks")
	}
	if Truncate("héllo wörld", 5) != "héllo" || Truncate("ab", 5) != "ab" {
		t.Error("Truncate")
	}
}
