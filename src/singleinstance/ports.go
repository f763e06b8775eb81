package singleinstance

import "sync"

const (
	DefaultPortStart = 49500
	DefaultPortEnd   = 49550

	minPort = 1024
	maxPort = 65535
)

var (
	portMu    sync.RWMutex
	portStart = DefaultPortStart
	portEnd   = DefaultPortEnd
)

// SetPortRange sets the inclusive range the server binds (first port) and
// clients scan. Values are clamped to [1024, 65535]; a reversed range is
// swapped. Call it once config is loaded, before NewServer or NewClient.
func SetPortRange(start, end int) {
	start, end = clampRange(start, end)
	portMu.Lock()
	portStart, portEnd = start, end
	portMu.Unlock()
}

// PortRange returns the effective inclusive range.
func PortRange() (int, int) {
	portMu.RLock()
	defer portMu.RUnlock()
	return portStart, portEnd
}

func clampRange(start, end int) (int, int) {
	if end < start {
		start, end = end, start
	}
	start = min(max(start, minPort), maxPort)
	end = min(max(end, minPort), maxPort)
	return start, end
}
