package sysinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/paperdash/internal/source"
)

func fakeProbes() Probes {
	return Probes{
		Info: func(context.Context) (*host.InfoStat, error) {
			return &host.InfoStat{Hostname: "pi", Uptime: uint64((26*time.Hour + 5*time.Minute).Seconds())}, nil
		},
		Load: func(context.Context) (*load.AvgStat, error) {
			return &load.AvgStat{Load1: 0.4217}, nil
		},
		Memory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{UsedPercent: 36.6}, nil
		},
	}
}

func TestFetch(t *testing.T) {
	rec := New(fakeProbes()).Fetch(context.Background(), time.Now())
	st, ok := rec.Value()
	require.True(t, ok)
	assert.Equal(t, "pi", st.Hostname)
	assert.Equal(t, "pi up 1d 2h | load 0.42 | mem 37%", st.Line())
}

func TestFetchProbeError(t *testing.T) {
	p := fakeProbes()
	p.Memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }

	rec := New(p).Fetch(context.Background(), time.Now())
	assert.Equal(t, source.ReasonFailed, rec.Reason().Kind)
	assert.Contains(t, rec.Reason().Detail, "no /proc")
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "0m", Uptime(30*time.Second))
	assert.Equal(t, "4h 12m", Uptime(4*time.Hour+12*time.Minute+59*time.Second))
	assert.Equal(t, "3d 0h", Uptime(72*time.Hour))
}
