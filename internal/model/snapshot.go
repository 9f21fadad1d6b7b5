package model

import "time"

// SchemaVersion is bumped whenever a Snapshot field is renamed or removed.
const SchemaVersion = 1

// Memory captures RAM and swap usage in MB.
type Memory struct {
	Total       int64 `json:"total"`
	Used        int64 `json:"used"`
	Free        int64 `json:"free"`
	Available   int64 `json:"available"`
	Buffers     int64 `json:"buffers"`
	Cached      int64 `json:"cached"`
	Active      int64 `json:"active"`
	Inactive    int64 `json:"inactive"`
	SwapTotal   int64 `json:"swapTotal"`
	SwapUsed    int64 `json:"swapUsed"`
	UsedPercent int   `json:"usedPercent"`
}

// Core is one logical CPU.
type Core struct {
	Index        int     `json:"index"`
	UsagePercent int     `json:"usagePercent"`
	FrequencyMHz float64 `json:"frequencyMHz"`
	MinFreqMHz   float64 `json:"minFreqMHz"`
	MaxFreqMHz   float64 `json:"maxFreqMHz"`
}

// FreqRange is the lowest minimum and highest maximum frequency across cores.
type FreqRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CPU aggregates processor identity, thermal state and per-core usage.
// FrequencyRange is nil when no core reported bounds.
type CPU struct {
	Model          string     `json:"model"`
	Temperature    float64    `json:"temperature"` // °C
	Cores          []Core     `json:"cores"`
	Frequencies    []float64  `json:"frequencies"` // MHz, current, per core
	FrequencyRange *FreqRange `json:"frequencyRange"`
	AverageUsage   int        `json:"averageUsage"`
	LoadAverage    []float64  `json:"loadAverage"`
}

// Disk is the root filesystem as reported by df in human units.
type Disk struct {
	Total       string `json:"total"`
	Used        string `json:"used"`
	Available   string `json:"available"`
	UsedPercent int    `json:"usedPercent"`
}

// Medium classifies the backing store of a partition.
type Medium string

const (
	MediumSDCard Medium = "sd-card"
	MediumRAM    Medium = "ram"
	MediumOther  Medium = "other"
)

// Partition is one mounted filesystem.
type Partition struct {
	Device      string `json:"device"`
	Size        string `json:"size"`
	Used        string `json:"used"`
	Available   string `json:"available"`
	UsedPercent int    `json:"usedPercent"`
	MountPoint  string `json:"mountPoint"`
	Medium      Medium `json:"medium"`
}

// Storage lists every mounted partition.
type Storage struct {
	Partitions []Partition `json:"partitions"`
}

// Wifi holds link-layer radio status. Optional fields are nil when the
// status text did not carry them.
type Wifi struct {
	SSID               *string  `json:"ssid"`
	SignalDBm          *int     `json:"signalDbm"`
	LinkQualityPercent *int     `json:"linkQualityPercent"`
	BitRateMbps        *float64 `json:"bitRateMbps"`
	FrequencyGHz       *float64 `json:"frequencyGHz"`
	Connected          bool     `json:"connected"`
}

// Traffic holds cumulative interface counters.
type Traffic struct {
	RxMB      float64 `json:"rxMB"`
	TxMB      float64 `json:"txMB"`
	RxPackets uint64  `json:"rxPackets"`
	TxPackets uint64  `json:"txPackets"`
}

// Network groups wireless status, traffic and address of the monitored interface.
type Network struct {
	Interface string  `json:"interface"`
	Wifi      Wifi    `json:"wifi"`
	Traffic   Traffic `json:"traffic"`
	IPAddress string  `json:"ipAddress"`
}

// BatterySource names the probe that produced a battery reading.
type BatterySource string

const (
	SourceFuelGauge   BatterySource = "hardware-fuel-gauge"
	SourceBusSensor   BatterySource = "generic-bus-sensor"
	SourcePowerSupply BatterySource = "power-supply-class"
	SourceSimulated   BatterySource = "simulated"
	SourceDefault     BatterySource = "default-fallback"
)

// Battery is a single battery reading.
type Battery struct {
	Timestamp  time.Time     `json:"timestamp"`
	Percentage float64       `json:"percentage"`
	Voltage    *float64      `json:"voltage"`
	Charging   bool          `json:"charging"`
	Source     BatterySource `json:"source"`
}

// TrafficSample is one entry of the network history.
type TrafficSample struct {
	Timestamp time.Time `json:"timestamp"`
	RxMB      float64   `json:"rxMB"`
	TxMB      float64   `json:"txMB"`
}

// Process is a lightweight top entry.
type Process struct {
	User    string  `json:"user"`
	PID     string  `json:"pid"`
	CPU     float64 `json:"cpu"`
	Mem     float64 `json:"mem"`
	Command string  `json:"command"`
}

// Host identifies the monitored machine.
type Host struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Kernel   string `json:"kernel"`
	Arch     string `json:"arch"`
}

// Snapshot is the full result of one poll cycle. A new value is built for
// every poll; it is never patched afterwards.
type Snapshot struct {
	Version        int             `json:"version"`
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Uptime         string          `json:"uptime"`
	Throttled      bool            `json:"throttled"`
	Host           Host            `json:"host"`
	Memory         Memory          `json:"memory"`
	Disk           Disk            `json:"disk"`
	CPU            CPU             `json:"cpu"`
	Storage        Storage         `json:"storage"`
	Network        Network         `json:"network"`
	Battery        Battery         `json:"battery"`
	BatteryHistory []Battery       `json:"batteryHistory"`
	NetworkHistory []TrafficSample `json:"networkHistory"`
	Processes      []Process       `json:"processes"`
	Directories    []string        `json:"directories"`
}

// Zero returns an empty snapshot with non-nil collections so it encodes as
// empty arrays rather than null.
func Zero() Snapshot {
	return Snapshot{
		Version:        SchemaVersion,
		Timestamp:      time.Now(),
		CPU:            CPU{Cores: []Core{}, Frequencies: []float64{}, LoadAverage: []float64{}},
		Storage:        Storage{Partitions: []Partition{}},
		BatteryHistory: []Battery{},
		NetworkHistory: []TrafficSample{},
		Processes:      []Process{},
		Directories:    []string{},
	}
}
