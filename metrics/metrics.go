// Package metrics exposes prometheus collectors for the frame loop and the
// host process
package metrics

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

// skip reasons recorded against FramesSkipped
const (
	SkipNoFrame     = "no_frame"
	SkipEstimate    = "estimate_error"
	SkipNoPose      = "no_pose"
	SkipNoReference = "no_reference"
	SkipRender      = "render_error"
)

// Collector holds the prometheus collectors on a private registry.  A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	frames         prometheus.Counter
	framesSkipped  *prometheus.CounterVec
	estimateErrors prometheus.Counter
	score          prometheus.Gauge
	matchedParts   prometheus.Gauge
	iteration      prometheus.Histogram
	captures       *prometheus.CounterVec

	memUsage prometheus.Gauge
	cpuUsage prometheus.Gauge
}

// New returns a Collector with all metrics registered
func New() *Collector {

	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posematch_frames_total",
			Help: "Total number of frames acquired by the frame loop",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posematch_frames_skipped_total",
			Help: "Frames that produced no score, by reason",
		}, []string{"reason"}),
		estimateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posematch_estimate_errors_total",
			Help: "Total number of failed pose estimations",
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posematch_alignment_score",
			Help: "Most recent valid alignment score",
		}),
		matchedParts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posematch_matched_parts",
			Help: "Number of body parts compared in the most recent score",
		}),
		iteration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "posematch_iteration_seconds",
			Help:    "Duration of a frame loop iteration",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posematch_reference_captures_total",
			Help: "Reference capture attempts, by outcome",
		}, []string{"outcome"}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posematch_memory_usage_megabytes",
			Help: "Resident memory of the process in megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posematch_cpu_usage_percent",
			Help: "CPU usage of the process in percent",
		}),
	}

	c.registry.MustRegister(c.frames, c.framesSkipped, c.estimateErrors,
		c.score, c.matchedParts, c.iteration, c.captures, c.memUsage, c.cpuUsage)

	return c
}

// Registry returns the private registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the http handler serving the registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// FrameAcquired counts a frame taken from the source
func (c *Collector) FrameAcquired() {
	if c == nil {
		return
	}

	c.frames.Inc()
}

// FrameSkipped counts a frame that produced no score
func (c *Collector) FrameSkipped(reason string) {
	if c == nil {
		return
	}

	c.framesSkipped.WithLabelValues(reason).Inc()
}

// EstimateFailed counts a failed pose estimation
func (c *Collector) EstimateFailed() {
	if c == nil {
		return
	}

	c.estimateErrors.Inc()
}

// ObserveScore records a valid alignment score
func (c *Collector) ObserveScore(score float64, matched int) {
	if c == nil {
		return
	}

	c.score.Set(score)
	c.matchedParts.Set(float64(matched))
}

// ObserveIteration records the duration of one loop iteration
func (c *Collector) ObserveIteration(d time.Duration) {
	if c == nil {
		return
	}

	c.iteration.Observe(d.Seconds())
}

// Captured records a reference capture outcome
func (c *Collector) Captured(err error) {
	if c == nil {
		return
	}

	outcome := "ok"

	if err != nil {
		outcome = "error"
	}

	c.captures.WithLabelValues(outcome).Inc()
}

// WatchProcess samples memory and CPU usage of this process every interval
// until ctx is cancelled
func (c *Collector) WatchProcess(ctx context.Context, interval time.Duration) error {

	proc, err := process.NewProcess(int32(os.Getpid()))

	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			c.sampleProcess(proc)
		}
	}
}

func (c *Collector) sampleProcess(proc *process.Process) {

	if mem, err := proc.MemoryInfo(); err == nil {
		c.memUsage.Set(float64(mem.RSS / 1024 / 1024))
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		c.cpuUsage.Set(math.Round(cpu*100) / 100)
	}
}
