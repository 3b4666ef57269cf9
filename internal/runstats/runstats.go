// Package runstats records how long each stage of a run takes and how much
// memory the process holds.
package runstats

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Stage is one timed step of a run.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Stats collects stage timings. The zero value is not usable; call New.
type Stats struct {
	start  time.Time
	stages []Stage
}

// New starts the run clock.
func New() *Stats {
	return &Stats{start: time.Now()}
}

// Time runs fn as the stage name and records its duration, also on error.
func (s *Stats) Time(name string, fn func() error) error {
	t := time.Now()
	err := fn()
	s.stages = append(s.stages, Stage{Name: name, Duration: time.Since(t)})
	return err
}

// Stages returns the recorded stages in order.
func (s *Stats) Stages() []Stage {
	return s.stages
}

// Total returns the time since New.
func (s *Stats) Total() time.Duration {
	return time.Since(s.start)
}

// Memory is a snapshot of process memory in bytes.
type Memory struct {
	RSS       uint64 // resident set size reported by the OS
	HeapAlloc uint64 // live Go heap
	Sys       uint64 // memory obtained from the OS by the Go runtime
}

// SampleMemory reads the current process memory. The Go runtime figures
// are always filled in; RSS is zero when the OS query fails.
func SampleMemory() (Memory, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := Memory{HeapAlloc: ms.HeapAlloc, Sys: ms.Sys}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return m, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return m, err
	}
	m.RSS = info.RSS
	return m, nil
}

// Fields renders the stages, total time and a memory sample as log fields.
func (s *Stats) Fields() []zap.Field {
	fields := make([]zap.Field, 0, len(s.stages)+4)
	for _, st := range s.stages {
		fields = append(fields, zap.Duration(st.Name, st.Duration))
	}
	fields = append(fields, zap.Duration("total", s.Total()))

	m, err := SampleMemory()
	if err != nil {
		fields = append(fields, zap.NamedError("memErr", err))
	}
	if m.RSS > 0 {
		fields = append(fields, zap.Uint64("rssMB", m.RSS>>20))
	}
	fields = append(fields, zap.Uint64("heapMB", m.HeapAlloc>>20))
	return fields
}
