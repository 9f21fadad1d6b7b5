package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
)

// Patterns are the regular expressions used to read iwconfig output. Each
// must have one capture group, except LinkQuality which captures the
// numerator and denominator.
type Patterns struct {
	SSID        string `yaml:"wifi_ssid"`
	Signal      string `yaml:"wifi_signal"`
	LinkQuality string `yaml:"wifi_link_quality"`
	BitRate     string `yaml:"wifi_bit_rate"`
	Frequency   string `yaml:"wifi_frequency"`
}

// DefaultPatterns match wireless-tools iwconfig.
func DefaultPatterns() Patterns {
	return Patterns{
		SSID:        `ESSID:"([^"]*)"`,
		Signal:      `Signal level[=:](-?\d+) dBm`,
		LinkQuality: `Link Quality[=:](\d+)/(\d+)`,
		BitRate:     `Bit Rate[=:]([\d.]+) Mb/s`,
		Frequency:   `Frequency[=:]([\d.]+) GHz`,
	}
}

// WifiMatcher holds compiled Patterns.
type WifiMatcher struct {
	ssid, signal, quality, bitRate, freq *regexp.Regexp
}

var defaultMatcher = mustCompile(DefaultPatterns())

func mustCompile(p Patterns) *WifiMatcher {
	m, err := p.Compile()
	if err != nil {
		panic(err)
	}
	return m
}

// Compile builds a WifiMatcher. Empty patterns fall back to the defaults.
func (p Patterns) Compile() (*WifiMatcher, error) {
	def := DefaultPatterns()
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	var m WifiMatcher
	for _, c := range []struct {
		dst  **regexp.Regexp
		expr string
		name string
	}{
		{&m.ssid, pick(p.SSID, def.SSID), "wifi_ssid"},
		{&m.signal, pick(p.Signal, def.Signal), "wifi_signal"},
		{&m.quality, pick(p.LinkQuality, def.LinkQuality), "wifi_link_quality"},
		{&m.bitRate, pick(p.BitRate, def.BitRate), "wifi_bit_rate"},
		{&m.freq, pick(p.Frequency, def.Frequency), "wifi_frequency"},
	} {
		re, err := regexp.Compile(c.expr)
		if err != nil {
			return nil, fmt.Errorf("parse: pattern %s: %w", c.name, err)
		}
		*c.dst = re
	}
	return &m, nil
}

// Wireless parses iwconfig output with the default patterns.
func Wireless(text string) model.Wifi {
	return defaultMatcher.Wireless(text)
}

// Wireless parses iwconfig output. Fields without a match stay nil.
func (m *WifiMatcher) Wireless(text string) model.Wifi {
	var w model.Wifi
	if s := submatch(m.ssid, text, 1); s != "" {
		w.SSID = &s
	}
	if s := submatch(m.signal, text, 1); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			w.SignalDBm = &v
		}
	}
	if g := m.quality.FindStringSubmatch(text); len(g) > 2 {
		num, den := Float(g[1]), Float(g[2])
		if den > 0 {
			q := int(math.Round(100 * num / den))
			w.LinkQualityPercent = &q
		}
	}
	if s := submatch(m.bitRate, text, 1); s != "" {
		v := Float(s)
		w.BitRateMbps = &v
	}
	if s := submatch(m.freq, text, 1); s != "" {
		v := Float(s)
		w.FrequencyGHz = &v
	}
	w.Connected = w.SSID != nil && *w.SSID != ""
	return w
}

func submatch(re *regexp.Regexp, text string, i int) string {
	g := re.FindStringSubmatch(text)
	if len(g) <= i {
		return ""
	}
	return g[i]
}

// NetDev reads the counters of iface from /proc/net/dev.
func NetDev(text, iface string) model.Traffic {
	prefix := iface + ":"
	for _, line := range lines(text) {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), prefix)
		if !ok {
			continue
		}
		f := strings.Fields(rest)
		return model.Traffic{
			RxMB:      round2(float64(Uint(field(f, 0))) / (1024 * 1024)),
			RxPackets: Uint(field(f, 1)),
			TxMB:      round2(float64(Uint(field(f, 8))) / (1024 * 1024)),
			TxPackets: Uint(field(f, 9)),
		}
	}
	return model.Traffic{}
}

// IPAddress returns the first address printed by `hostname -I`.
func IPAddress(text string) string {
	f := strings.Fields(text)
	return field(f, 0)
}
