package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Pseudo and virtual filesystems that never hold user files.
var virtualFstypes = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "securityfs": true,
	"debugfs": true, "tracefs": true, "pstore": true, "bpf": true,
	"mqueue": true, "hugetlbfs": true, "configfs": true, "fusectl": true,
	"autofs": true, "binfmt_misc": true, "squashfs": true,
	"nsfs": true, "ramfs": true, "efivarfs": true,
}

// Roots lists the mount points of every physical filesystem. When the
// partition table cannot be read it falls back to the OS root.
func Roots() ([]string, error) {
	parts, err := disk.Partitions(false)
	if err != nil || len(parts) == 0 {
		if fb := fallbackRoots(); len(fb) > 0 {
			return fb, nil
		}
		if err == nil {
			err = fmt.Errorf("no partitions reported")
		}
		return nil, fmt.Errorf("failed to list filesystem roots: %w", err)
	}
	var roots []string
	for _, r := range rootsFromPartitions(parts) {
		// bind-mounted files (resolv.conf in containers) are not roots
		if fi, err := os.Stat(r); err == nil && fi.IsDir() {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		return fallbackRoots(), nil
	}
	return roots, nil
}

func rootsFromPartitions(parts []disk.PartitionStat) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range parts {
		if p.Mountpoint == "" || virtualFstypes[strings.ToLower(p.Fstype)] {
			continue
		}
		mp := filepath.Clean(p.Mountpoint)
		if seen[mp] {
			continue
		}
		seen[mp] = true
		roots = append(roots, mp)
	}
	sort.Strings(roots)
	return roots
}

func fallbackRoots() []string {
	if runtime.GOOS != "windows" {
		return []string{string(filepath.Separator)}
	}
	var roots []string
	for l := 'A'; l <= 'Z'; l++ {
		drive := string(l) + `:\`
		if _, err := os.Stat(drive); err == nil {
			roots = append(roots, drive)
		}
	}
	return roots
}
