// Package hwprofile samples host memory and CPU capacity and maps it to a
// recommended model tier. Profiling never fails outward: when the platform
// reader is unavailable the documented conservative defaults are used so
// downstream logic always has a value to reason about.
package hwprofile

import (
	"runtime"

	"inferd/pkg/types"
)

// Conservative defaults applied when the platform memory reader fails.
const (
	DefaultTotalMemoryGB     = 4.0
	DefaultAvailableMemoryGB = 2.0
	DefaultCPUCount          = 2
)

// Tier ids, smallest to largest. Ties break toward the smaller tier.
const (
	TierTiny      = "tiny"
	TierMini      = "mini"
	TierMedical7B = "medical-7b"
)

// memReading is the raw platform sample, in bytes.
type memReading struct {
	totalBytes uint64
	availBytes uint64
}

// Profile returns a best-effort hardware snapshot. It never fails: on any
// platform read failure the conservative defaults above are substituted.
func Profile() types.HardwareProfile {
	p := types.HardwareProfile{
		TotalMemoryGB:     DefaultTotalMemoryGB,
		AvailableMemoryGB: DefaultAvailableMemoryGB,
		CPUCount:          DefaultCPUCount,
		OS:                osName(),
	}
	if r, err := readMemory(); err == nil && r.totalBytes > 0 {
		p.TotalMemoryGB = float64(r.totalBytes) / (1 << 30)
		p.AvailableMemoryGB = float64(r.availBytes) / (1 << 30)
	}
	if n := runtime.NumCPU(); n > 0 {
		p.CPUCount = n
	}
	p.RecommendedTier = TierFor(p.TotalMemoryGB)
	p.CanRun7B = p.TotalMemoryGB >= 8.0
	p.CanRunMini = p.TotalMemoryGB >= 6.0
	return p
}

// TierFor maps total memory to a model tier: >=8GB medical-7b, >=6GB mini,
// otherwise tiny.
func TierFor(totalGB float64) string {
	switch {
	case totalGB >= 8.0:
		return TierMedical7B
	case totalGB >= 6.0:
		return TierMini
	default:
		return TierTiny
	}
}

// DetectEnvironment classifies the host once at startup. A host whose memory
// can be sampled is assumed able to run a local daemon; anything else is
// treated as network-only.
func DetectEnvironment() types.Environment {
	if _, err := readMemory(); err != nil {
		return types.EnvNetworkOnly
	}
	return types.EnvDesktop
}

func osName() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}
