package parse

import (
	"strconv"
	"strings"
)

// Uptime strips the leading "up " from `uptime -p`.
func Uptime(text string) string {
	return strings.TrimPrefix(strings.TrimSpace(text), "up ")
}

// Throttled reads the hex value of `vcgencmd get_throttled`
// ("throttled=0x50005"). ok is false when no value is present.
func Throttled(text string) (raw uint64, ok bool) {
	_, v, found := strings.Cut(strings.TrimSpace(text), "=")
	if !found {
		return 0, false
	}
	raw, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
	if err != nil {
		return 0, false
	}
	return raw, true
}

// Directories lists entry names from `ls -la`, without "." and "..".
func Directories(text string) []string {
	dirs := []string{}
	for _, line := range lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total") {
			continue
		}
		f := strings.Fields(line)
		name := f[len(f)-1]
		if name == "." || name == ".." {
			continue
		}
		dirs = append(dirs, name)
	}
	return dirs
}

// HexByte parses i2cget byte output such as "0x14".
func HexByte(text string) (int, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 0, 8)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// HexWord parses i2cget word output such as "0x5a32".
func HexWord(text string) (uint16, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 0, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
