package parse

import (
	"strings"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
)

// DiskRoot parses `df -h /`; the filesystem row is the line after the header.
func DiskRoot(text string) model.Disk {
	ls := lines(text)
	if len(ls) < 2 {
		return model.Disk{}
	}
	f := strings.Fields(ls[1])
	return model.Disk{
		Total:       field(f, 1),
		Used:        field(f, 2),
		Available:   field(f, 3),
		UsedPercent: int(Int(field(f, 4))),
	}
}

// Partitions parses the full `df -h` table.
func Partitions(text string) []model.Partition {
	parts := []model.Partition{}
	for i, line := range lines(text) {
		f := strings.Fields(line)
		if i == 0 || len(f) < 6 {
			continue
		}
		parts = append(parts, model.Partition{
			Device:      f[0],
			Size:        f[1],
			Used:        f[2],
			Available:   f[3],
			UsedPercent: int(Int(f[4])),
			MountPoint:  strings.Join(f[5:], " "),
			Medium:      MediumOf(f[0]),
		})
	}
	return parts
}

// MediumOf classifies a df source column.
func MediumOf(device string) model.Medium {
	switch {
	case strings.HasPrefix(device, "/dev/mmcblk"):
		return model.MediumSDCard
	case device == "tmpfs", device == "ramfs", device == "devtmpfs",
		strings.HasPrefix(device, "/dev/ram"), strings.HasPrefix(device, "/dev/zram"):
		return model.MediumRAM
	default:
		return model.MediumOther
	}
}
