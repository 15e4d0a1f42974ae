package metrics

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// HostInfo describes the machine a worker runs on.
// The ranker is CPU bound, so this is logged at worker startup.
type HostInfo struct {
	Hostname         string `json:"hostname"`
	CPULogical       int    `json:"cpu_logical"`
	TotalMemoryMB    uint64 `json:"total_memory_mb"`
	GoVersion        string `json:"go_version"`
	InContainer      bool   `json:"in_container"`
	ContainerRuntime string `json:"container_runtime,omitempty"`
}

var (
	host     *HostInfo
	hostOnce sync.Once
)

// Host returns the cached host information and exports it as a gauge
func Host() *HostInfo {
	hostOnce.Do(func() {
		host = &HostInfo{
			CPULogical: runtime.NumCPU(),
			GoVersion:  runtime.Version(),
		}
		if hostname, err := os.Hostname(); err == nil {
			host.Hostname = hostname
		} else {
			host.Hostname = "unknown"
		}
		host.InContainer, host.ContainerRuntime = detectContainer()
		host.TotalMemoryMB = totalMemoryMB()

		hostInfo.WithLabelValues(host.Hostname, host.GoVersion, host.ContainerRuntime).Set(1)
	})
	return host
}

// detectContainer checks if running in a container
func detectContainer() (bool, string) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "docker"
	}

	if _, err := os.Stat("/var/run/secrets/kubernetes.io"); err == nil {
		return true, "kubernetes"
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		switch {
		case strings.Contains(content, "kubepods"):
			return true, "kubernetes"
		case strings.Contains(content, "docker"):
			return true, "docker"
		case strings.Contains(content, "containerd"):
			return true, "containerd"
		}
	}

	return false, ""
}

// totalMemoryMB reads MemTotal on Linux, 0 elsewhere
func totalMemoryMB() uint64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb / 1024
	}
	return 0
}
