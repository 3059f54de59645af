package systeminfo

import (
	"runtime"

	"picpick/logger"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo describes the host a scan ran on.
type SystemInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty"`
	LogicalCPUs     int    `json:"logical_cpus"`
	PhysicalCPUs    int    `json:"physical_cpus,omitempty"`
	TotalMemory     uint64 `json:"total_memory,omitempty"`
	AvailableMemory uint64 `json:"available_memory,omitempty"`
}

// GetSystemInfo gathers what the platform exposes. Missing pieces are logged
// and left empty.
func GetSystemInfo() *SystemInfo {
	info := &SystemInfo{
		OS:          runtime.GOOS,
		KernelArch:  runtime.GOARCH,
		LogicalCPUs: runtime.NumCPU(),
	}

	if h, err := host.Info(); err != nil {
		logger.Warnf("Failed to gather host information: %v", err)
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		if h.KernelArch != "" {
			info.KernelArch = h.KernelArch
		}
	}

	if n, err := cpu.Counts(false); err == nil && n > 0 {
		info.PhysicalCPUs = n
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		logger.Warnf("Failed to gather memory information: %v", err)
	} else {
		info.TotalMemory = vm.Total
		info.AvailableMemory = vm.Available
	}

	return info
}

// PhysicalCores returns the number of physical cores, falling back to the
// logical count when the platform does not report it.
func PhysicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
