package profiler

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/animator"
	"github.com/agilira/go-timecache"
	"github.com/sugawarayuuta/sonnet"
)

// DefaultInterval is the reporting period used when WithInterval is not given.
const DefaultInterval = time.Second

// Report is one period of profiler output. Counter fields are deltas over the period; the first
// period starts when the profiler is created or enabled.
type Report struct {
	Timestamp    int64   `json:"ts"`
	FPS          float64 `json:"fps"`
	Live         int     `json:"live"`
	Capacity     int     `json:"capacity"`
	Batches      uint64  `json:"batches"`
	SkippedTicks uint64  `json:"skipped_ticks"`
	Converged    uint64  `json:"converged"`
	Cancelled    uint64  `json:"cancelled"`
	Replayed     uint64  `json:"replayed"`
	HeapMB       float64 `json:"heap_mb"`
	AllocRateMB  float64 `json:"alloc_rate_mb"`
	GC           uint32  `json:"gc"`
	LastPauseUs  uint64  `json:"gc_last_pause_us"`
	MaxPauseUs   uint64  `json:"gc_max_pause_us"`
	SysMB        float64 `json:"sys_mb"`
}

// Profiler tracks frame rate, spring scheduler counters and memory statistics.
// Outputs a Report at a configurable interval, either as a log record or as a JSON line.
type Profiler struct {
	mu *sync.Mutex

	enabled  bool
	stats    func() animator.Stats
	interval time.Duration
	out      io.Writer
	now      func() int64
	onReport func(Report)

	frameCount     int
	lastNano       int64
	last           animator.Stats
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second; output defaults to the common logger.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		mu:       &sync.Mutex{},
		enabled:  true,
		interval: DefaultInterval,
		now:      timecache.CachedTimeNano,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastNano = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Emits a Report when the update interval has elapsed.
//
// Returns:
//   - bool: true if a report was emitted this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return false
	}
	p.frameCount++
	now := p.now()
	elapsed := time.Duration(now - p.lastNano)
	if elapsed < p.interval {
		p.mu.Unlock()
		return false
	}

	r := p.collect(now, elapsed)
	out, onReport := p.out, p.onReport
	p.mu.Unlock()

	p.emit(r, out)
	if onReport != nil {
		onReport(r)
	}
	return true
}

// Enable resumes reporting. The first period starts now.
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.frameCount = 0
	p.lastNano = p.now()
	if p.stats != nil {
		p.last = p.stats()
	}
}

// Disable stops reporting; Tick becomes a no-op.
func (p *Profiler) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

// Enabled reports whether Tick is collecting.
func (p *Profiler) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Wrap returns a frame source that forwards to source and calls Tick after every frame.
//
// Parameters:
//   - source: the frame source to instrument
//
// Returns:
//   - *Source: the instrumented frame source
func (p *Profiler) Wrap(source FrameSource) *Source {
	return &Source{FrameSource: source, profiler: p}
}

// collect builds the report for the period ending at now and resets the period. Caller holds mu.
func (p *Profiler) collect(now int64, elapsed time.Duration) Report {
	secs := elapsed.Seconds()
	r := Report{
		Timestamp: now,
		FPS:       float64(p.frameCount) / secs,
	}

	if p.stats != nil {
		s := p.stats()
		r.Live = s.Live
		r.Capacity = s.Capacity
		r.Batches = s.Batches - p.last.Batches
		r.SkippedTicks = s.SkippedTicks - p.last.SkippedTicks
		r.Converged = s.Converged - p.last.Converged
		r.Cancelled = s.Cancelled - p.last.Cancelled
		r.Replayed = s.Replayed - p.last.Replayed
		p.last = s
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / secs

	gcCount := p.memStats.NumGC
	r.GC = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	p.frameCount = 0
	p.lastNano = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r
}

func (p *Profiler) emit(r Report, out io.Writer) {
	if out == nil {
		common.Logger().Info("profiler",
			"fps", r.FPS,
			"live", r.Live,
			"capacity", r.Capacity,
			"batches", r.Batches,
			"skipped", r.SkippedTicks,
			"converged", r.Converged,
			"cancelled", r.Cancelled,
			"heap_mb", r.HeapMB,
			"alloc_rate_mb", r.AllocRateMB,
			"gc", r.GC,
			"gc_max_pause_us", r.MaxPauseUs,
			"sys_mb", r.SysMB,
		)
		return
	}

	line, err := sonnet.Marshal(r)
	if err != nil {
		common.Logger().Warn("profiler report encoding failed", "error", err)
		return
	}
	if _, err := out.Write(append(line, '\n')); err != nil {
		common.Logger().Warn("profiler report write failed", "error", err)
	}
}
