// FILE: lixenwraith/propcfg/timing.go
package propcfg

import "time"

// Core timing constants for production use.
const (
	// Properties file watching
	MinPollInterval      = 100 * time.Millisecond // Hard floor for file stat polling
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultPollInterval  = time.Second            // Standard file monitoring frequency
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for reload operations

	// Remote surface host
	RemoteReadHeaderTimeout = 5 * time.Second  // Slow-header guard
	RemoteReadTimeout       = 10 * time.Second // Full request read window
	RemoteWriteTimeout      = 10 * time.Second // Response write window
	RemoteIdleTimeout       = 60 * time.Second // Keep-alive idle window
	RemoteShutdownTimeout   = 5 * time.Second  // Graceful drain before forced close
)

// MaxRemoteBodySize caps PATCH request bodies
const MaxRemoteBodySize = 1 << 20
