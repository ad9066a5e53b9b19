package fpdrv

import (
	"sync/atomic"
	"time"

	"github.com/swipesensor/fpdrv/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing, the same shape
// the teacher used for block-IO latency; here they bucket frame-read and
// image-capture latency instead.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for one driver
// Session, grounded on the teacher's block-IO Metrics but counting frames,
// images and driver errors instead of reads/writes/discards.
type Metrics struct {
	// Frame-level counters (one IN transfer decoded to zero or more
	// protocol.Frame values during capture or finger detection).
	FramesObserved atomic.Uint64
	FrameBytes     atomic.Uint64
	FrameErrors    atomic.Uint64

	// Image-level counters.
	ImagesCaptured atomic.Uint64

	// Error counters broken out by Kind.
	IOErrors        atomic.Uint64
	ProtocolErrors  atomic.Uint64
	ResourceErrors  atomic.Uint64
	CancelledErrors atomic.Uint64

	// Performance tracking.
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts): bucket[i] counts
	// observations with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Session lifecycle.
	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordFrame records one decoded (or failed) protocol frame.
func (m *Metrics) RecordFrame(bytes int, latencyNs uint64, success bool) {
	m.FramesObserved.Add(1)
	if success {
		m.FrameBytes.Add(uint64(bytes))
	} else {
		m.FrameErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordImage records one reassembled image.
func (m *Metrics) RecordImage() {
	m.ImagesCaptured.Add(1)
}

// RecordError increments the counter for the given error kind string
// ("io", "protocol", "resource", "cancelled"); unrecognized kinds are
// silently dropped rather than panicking, since Observer implementations
// must never destabilize the caller.
func (m *Metrics) RecordError(kind string) {
	switch kind {
	case "io":
		m.IOErrors.Add(1)
	case "protocol":
		m.ProtocolErrors.Add(1)
	case "resource":
		m.ResourceErrors.Add(1)
	case "cancelled":
		m.CancelledErrors.Add(1)
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the session as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read
// without further synchronization.
type MetricsSnapshot struct {
	FramesObserved uint64
	FrameBytes     uint64
	FrameErrors    uint64
	ImagesCaptured uint64

	IOErrors        uint64
	ProtocolErrors  uint64
	ResourceErrors  uint64
	CancelledErrors uint64
	TotalErrors     uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	FrameRate float64 // frames per second
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FramesObserved:  m.FramesObserved.Load(),
		FrameBytes:      m.FrameBytes.Load(),
		FrameErrors:     m.FrameErrors.Load(),
		ImagesCaptured:  m.ImagesCaptured.Load(),
		IOErrors:        m.IOErrors.Load(),
		ProtocolErrors:  m.ProtocolErrors.Load(),
		ResourceErrors:  m.ResourceErrors.Load(),
		CancelledErrors: m.CancelledErrors.Load(),
	}
	snap.TotalErrors = snap.IOErrors + snap.ProtocolErrors + snap.ResourceErrors + snap.CancelledErrors

	opCount := m.OpCount.Load()
	totalLatencyNs := m.TotalLatencyNs.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.FrameRate = float64(snap.FramesObserved) / uptimeSeconds
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter, useful between test cases.
func (m *Metrics) Reset() {
	m.FramesObserved.Store(0)
	m.FrameBytes.Store(0)
	m.FrameErrors.Store(0)
	m.ImagesCaptured.Store(0)
	m.IOErrors.Store(0)
	m.ProtocolErrors.Store(0)
	m.ResourceErrors.Store(0)
	m.CancelledErrors.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// MetricsObserver implements interfaces.Observer by recording into a
// Metrics, the same adapter role the teacher's MetricsObserver plays over
// its block-IO Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveFrame(bytes int, latencyNs uint64, success bool) {
	o.metrics.RecordFrame(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveImage(width, height int) {
	o.metrics.RecordImage()
}

func (o *MetricsObserver) ObserveError(kind string) {
	o.metrics.RecordError(kind)
}

// NoOpObserver discards every observation, the default when a caller
// supplies no Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFrame(int, uint64, bool) {}
func (NoOpObserver) ObserveImage(int, int)          {}
func (NoOpObserver) ObserveError(string)            {}

// Compile-time interface checks.
var (
	_ interfaces.Observer = (*MetricsObserver)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
