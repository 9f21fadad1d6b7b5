package parse

import "strings"

// FreeMem is the `free -m` table, in MB.
type FreeMem struct {
	Total     int64
	Used      int64
	Free      int64
	Shared    int64
	BuffCache int64
	Available int64
	SwapTotal int64
	SwapUsed  int64
	SwapFree  int64
}

// Free parses `free -m`. Rows are selected by their "Mem:" and "Swap:"
// labels so the header line is optional.
func Free(text string) FreeMem {
	var m FreeMem
	for _, line := range lines(text) {
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "Mem:":
			m.Total = Int(field(f, 1))
			m.Used = Int(field(f, 2))
			m.Free = Int(field(f, 3))
			m.Shared = Int(field(f, 4))
			m.BuffCache = Int(field(f, 5))
			m.Available = Int(field(f, 6))
		case "Swap:":
			m.SwapTotal = Int(field(f, 1))
			m.SwapUsed = Int(field(f, 2))
			m.SwapFree = Int(field(f, 3))
		}
	}
	return m
}

// Meminfo parses /proc/meminfo style "Key:   value kB" lines into kB values.
func Meminfo(text string) map[string]int64 {
	kv := make(map[string]int64)
	for _, line := range lines(text) {
		idx := strings.Index(line, ":")
		if idx == -1 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		val = strings.TrimSpace(strings.TrimSuffix(val, "kB"))
		if key == "" {
			continue
		}
		kv[key] = Int(val)
	}
	return kv
}

// MemDetail is the subset of /proc/meminfo the dashboard shows, in MB.
type MemDetail struct {
	Total     int64
	Free      int64
	Available int64
	Buffers   int64
	Cached    int64
	Active    int64
	Inactive  int64
	SwapTotal int64
	SwapFree  int64
}

// MeminfoDetail derives MB values from a Meminfo map by key name.
// Cached includes reclaimable slab, matching what free(1) reports.
func MeminfoDetail(kv map[string]int64) MemDetail {
	mb := func(key string) int64 { return kv[key] / 1024 }
	return MemDetail{
		Total:     mb("MemTotal"),
		Free:      mb("MemFree"),
		Available: mb("MemAvailable"),
		Buffers:   mb("Buffers"),
		Cached:    (kv["Cached"] + kv["SReclaimable"]) / 1024,
		Active:    mb("Active"),
		Inactive:  mb("Inactive"),
		SwapTotal: mb("SwapTotal"),
		SwapFree:  mb("SwapFree"),
	}
}
