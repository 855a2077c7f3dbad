package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/integrator"
	"github.com/agilira/go-errors"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
)

// benchTolerance is the largest position difference from the sequential run that still counts as agreement.
const benchTolerance = 1e-4

type benchOptions struct {
	springs  int
	ticks    int
	workers  int
	chunk    int
	backends []backend.BackendType
}

type benchResult struct {
	backend   backend.BackendType
	elapsed   time.Duration
	maxDiff   float32
	converged int
	err       error
}

// benchRecords builds a reproducible batch of springs with varied parameters.
func benchRecords(n int) []integrator.SpringRecord {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	records := make([]integrator.SpringRecord, n)
	for i := range records {
		var from, to common.Vec4
		for c := range from {
			from[c] = rng.Float32()*200 - 100
			to[c] = rng.Float32()*200 - 100
		}
		records[i] = integrator.NewRecord(from, to,
			100+rng.Float32()*200,
			5+rng.Float32()*20,
			0.001,
		)
	}
	return records
}

// runBench steps the same batch on every requested backend and compares each result with the
// first backend's, which should be sequential. A backend that cannot be created is reported in
// its result and skipped.
func runBench(opts benchOptions) ([]benchResult, error) {
	if len(opts.backends) == 0 {
		return nil, errors.New(ErrCodeUsage, "no backends to benchmark")
	}

	dt := float32(harmonica.FPS(60))
	initial := benchRecords(opts.springs)
	var reference []integrator.SpringRecord

	results := make([]benchResult, 0, len(opts.backends))
	for _, t := range opts.backends {
		res := benchResult{backend: t}
		b, err := backend.NewBackend(
			backend.WithBackendType(t),
			backend.WithWorkers(opts.workers),
			backend.WithChunkSize(opts.chunk),
		)
		if err != nil {
			res.err = err
			results = append(results, res)
			continue
		}

		records := make([]integrator.SpringRecord, len(initial))
		copy(records, initial)

		start := time.Now()
		for range opts.ticks {
			b.Process(records, dt, func() {})
		}
		res.elapsed = time.Since(start)
		b.Release()

		for _, r := range records {
			if !r.IsRunning() {
				res.converged++
			}
		}
		if reference == nil {
			reference = records
		} else {
			res.maxDiff = maxPositionDiff(reference, records)
		}
		results = append(results, res)
	}
	return results, nil
}

func maxPositionDiff(a, b []integrator.SpringRecord) float32 {
	var worst float32
	for i := range a {
		worst = max(worst, a[i].Position.Sub(b[i].Position).MaxAbs())
	}
	return worst
}

var (
	benchHeader = lipgloss.NewStyle().Bold(true)
	benchOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAF5F"))
	benchBad    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F"))
)

func renderBench(opts benchOptions, results []benchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", benchHeader.Render(fmt.Sprintf("%d springs x %d ticks", opts.springs, opts.ticks)))
	fmt.Fprintf(&sb, "%-12s %12s %12s %10s %12s\n", "backend", "total", "per tick", "converged", "max diff")

	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(&sb, "%-12s %s\n", r.backend, benchBad.Render("unavailable: "+r.err.Error()))
			continue
		}
		diff := benchOK.Render(fmt.Sprintf("%12.2e", r.maxDiff))
		if r.maxDiff > benchTolerance {
			diff = benchBad.Render(fmt.Sprintf("%12.2e", r.maxDiff))
		}
		perTick := r.elapsed / time.Duration(opts.ticks)
		fmt.Fprintf(&sb, "%-12s %12s %12s %10d %s\n",
			r.backend, r.elapsed.Round(time.Microsecond), perTick.Round(time.Nanosecond), r.converged, diff)
	}
	return sb.String()
}
