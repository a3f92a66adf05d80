package scheduler

import (
	"context"
)

// minFreeDiskBytes is the resource-gate floor: a scheduled run does not
// dispatch with less than this much free space at the catalog's volume.
const minFreeDiskBytes = 1 << 30 // 1 GiB

// DiskSpaceProbe reports free bytes available at path. The real adapter
// shells out to golang.org/x/sys/unix.Statfs (or the Windows equivalent);
// tests inject a stub.
type DiskSpaceProbe interface {
	FreeBytes(path string) (uint64, error)
}

// DiskSpaceGate blocks dispatch when free space at Path drops below
// minFreeDiskBytes.
type DiskSpaceGate struct {
	Path  string
	Probe DiskSpaceProbe
}

func (g *DiskSpaceGate) Name() string { return "disk-space" }

func (g *DiskSpaceGate) Allow(ctx context.Context) (bool, error) {
	free, err := g.Probe.FreeBytes(g.Path)
	if err != nil {
		return false, err
	}
	return free > minFreeDiskBytes, nil
}

// ThermalState is the host's reported thermal pressure.
type ThermalState string

const (
	ThermalNominal  ThermalState = "nominal"
	ThermalFair     ThermalState = "fair"
	ThermalSerious  ThermalState = "serious"
	ThermalCritical ThermalState = "critical"
)

// ThermalProbe reports the host's current thermal state.
type ThermalProbe func() ThermalState

// ThermalGate blocks dispatch unless the host is nominal or fair.
type ThermalGate struct {
	Probe ThermalProbe
}

func (g *ThermalGate) Name() string { return "thermal" }

func (g *ThermalGate) Allow(ctx context.Context) (bool, error) {
	switch g.Probe() {
	case ThermalNominal, ThermalFair:
		return true, nil
	default:
		return false, nil
	}
}

// PowerProbe reports whether the host is currently on AC power.
type PowerProbe func() bool

// ChargingGate blocks dispatch for jobs that require AC power when the
// host is reporting battery power. With RequiresCharging false the gate
// always allows; otherwise it checks the live power state through Probe.
type ChargingGate struct {
	Probe            PowerProbe
	RequiresCharging bool
}

func (g *ChargingGate) Name() string { return "charging" }

func (g *ChargingGate) Allow(ctx context.Context) (bool, error) {
	if !g.RequiresCharging {
		return true, nil
	}
	return g.Probe(), nil
}
