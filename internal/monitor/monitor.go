// Package monitor polls a process's cumulative I/O counters and raises an
// alert whenever read or written bytes exceed a threshold.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Defaults used when Monitor fields are zero.
const (
	DefaultInterval  = time.Second
	DefaultThreshold = 40 * 1024
)

// IOStats are cumulative byte counters since the process started.
type IOStats struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

// Source reports I/O counters for the watched process.
type Source interface {
	IOCounters(ctx context.Context) (IOStats, error)
}

// ProcessSource reads counters for a PID with gopsutil.
type ProcessSource struct {
	proc *process.Process
}

// NewProcessSource looks up pid; it fails if the process does not exist.
func NewProcessSource(ctx context.Context, pid int32) (*ProcessSource, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}
	return &ProcessSource{proc: p}, nil
}

// IOCounters implements Source.
func (s *ProcessSource) IOCounters(ctx context.Context) (IOStats, error) {
	io, err := s.proc.IOCountersWithContext(ctx)
	if err != nil {
		return IOStats{}, fmt.Errorf("reading I/O counters of %d: %w", s.proc.Pid, err)
	}
	return IOStats{ReadBytes: io.ReadBytes, WriteBytes: io.WriteBytes}, nil
}

// Alert is raised for a sample above the threshold.
type Alert struct {
	ID        string    `json:"id"`
	PID       int32     `json:"pid"`
	Time      time.Time `json:"time"`
	Threshold uint64    `json:"threshold"`
	IOStats
}

// Alerter delivers alerts. Delivery errors are logged and do not stop the
// monitor.
type Alerter interface {
	Alert(ctx context.Context, a Alert) error
}

// Monitor polls Source every Interval.
type Monitor struct {
	Source    Source
	PID       int32
	Interval  time.Duration
	Threshold uint64
	Alerters  []Alerter
	Logger    *zap.Logger

	// OnSample, when set, is called with every sample.
	OnSample func(IOStats)
}

// Run samples immediately and then on every tick until ctx is cancelled,
// which returns nil. A Source error ends the loop and is returned.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.poll(ctx, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) poll(ctx context.Context, logger *zap.Logger) error {
	stats, err := m.Source.IOCounters(ctx)
	if err != nil {
		return err
	}

	threshold := m.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	logger.Info("io usage",
		zap.Int32("pid", m.PID),
		zap.Uint64("read_bytes", stats.ReadBytes),
		zap.Uint64("write_bytes", stats.WriteBytes))
	if m.OnSample != nil {
		m.OnSample(stats)
	}

	if stats.ReadBytes <= threshold && stats.WriteBytes <= threshold {
		return nil
	}

	alert := Alert{
		ID:        uuid.NewString(),
		PID:       m.PID,
		Time:      time.Now(),
		Threshold: threshold,
		IOStats:   stats,
	}
	for _, a := range m.Alerters {
		if err := a.Alert(ctx, alert); err != nil {
			logger.Warn("alert delivery failed", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}
	return nil
}
