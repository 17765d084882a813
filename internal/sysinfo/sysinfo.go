// Package sysinfo reports the health of the machine driving the panel.
package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/i474232898/paperdash/internal/source"
)

// Status is a point-in-time reading of the host.
type Status struct {
	Hostname       string        `json:"hostname"`
	Uptime         time.Duration `json:"uptime"`
	Load1          float64       `json:"load1"`
	MemUsedPercent float64       `json:"memUsedPercent"`
}

// Line renders the status as the one-line footer shown on the panel.
func (s Status) Line() string {
	return fmt.Sprintf("%s up %s | load %.2f | mem %.0f%%", s.Hostname, Uptime(s.Uptime), s.Load1, s.MemUsedPercent)
}

// Uptime renders d as "3d 4h", "4h 12m" or "12m".
func Uptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	mins := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// Probes are the gopsutil calls the adapter makes. Tests swap them out.
type Probes struct {
	Info   func(ctx context.Context) (*host.InfoStat, error)
	Load   func(ctx context.Context) (*load.AvgStat, error)
	Memory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// HostProbes reads the local machine.
func HostProbes() Probes {
	return Probes{
		Info:   host.InfoWithContext,
		Load:   load.AvgWithContext,
		Memory: mem.VirtualMemoryWithContext,
	}
}

type Adapter struct {
	probes Probes
}

func New(p Probes) *Adapter {
	return &Adapter{probes: p}
}

func (a *Adapter) Name() string { return "system" }

func (a *Adapter) Fetch(ctx context.Context, now time.Time) source.Record[Status] {
	info, err := a.probes.Info(ctx)
	if err != nil {
		return source.Failed[Status](fmt.Errorf("host info: %w", err))
	}
	avg, err := a.probes.Load(ctx)
	if err != nil {
		return source.Failed[Status](fmt.Errorf("load average: %w", err))
	}
	vm, err := a.probes.Memory(ctx)
	if err != nil {
		return source.Failed[Status](fmt.Errorf("memory: %w", err))
	}
	return source.OK(Status{
		Hostname:       info.Hostname,
		Uptime:         time.Duration(info.Uptime) * time.Second,
		Load1:          avg.Load1,
		MemUsedPercent: vm.UsedPercent,
	}, now)
}
