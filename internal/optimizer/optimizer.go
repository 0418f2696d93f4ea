// Package optimizer implements the Chunk-Size Optimizer (C5, spec §4.4):
// a per-(network, operation) learner that records execution duration per
// chunk size and returns {initial, max, confidence} on next start. Design
// Notes row 5: "variant-tagged record + repository with load/save; learner
// logic is pure given state."
package optimizer

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/kismp123/bugchainindexer-go/internal/metrics"
)

// Operation is one of the four chunked on-chain operations from spec §4.4.
type Operation string

const (
	OpERC20          Operation = "erc20"
	OpNativeBalance  Operation = "native-balance"
	OpContractCheck  Operation = "contract-check"
	OpCodeHash       Operation = "codehash"
)

// coldStartDefaults are the conservative defaults returned when no stored
// session exists for a (network, operation) pair.
var coldStartDefaults = map[Operation]Recommendation{
	OpERC20:         {Initial: 20, Max: 100},
	OpNativeBalance: {Initial: 50, Max: 200},
	OpContractCheck: {Initial: 50, Max: 300},
	OpCodeHash:      {Initial: 50, Max: 300},
}

const (
	minChunkSize         = 1
	confidenceSampleCap  = 200 // samples at/above this cap full confidence
)

// Recommendation is the {initial, max, confidence} triple returned on
// start.
type Recommendation struct {
	Initial    int
	Max        int
	Confidence float64
}

// bucket is the rolling per-chunk-size histogram entry.
type bucket struct {
	successCount    int
	failureCount    int
	socketErrCount  int
	totalDurationMs float64
}

func (b bucket) meanDurationMs() float64 {
	n := b.successCount + b.failureCount
	if n == 0 {
		return 0
	}
	return b.totalDurationMs / float64(n)
}

// Session is the learner for one (network, operation) pair. Safe for
// concurrent use; state mutation happens in RecordOutcome.
type Session struct {
	mu        sync.Mutex
	Network   string
	Operation Operation
	buckets   map[int]*bucket
	samples   int
}

// NewSession creates an empty in-memory session (cold start).
func NewSession(network string, op Operation) *Session {
	return &Session{Network: network, Operation: op, buckets: make(map[int]*bucket)}
}

// Outcome is one chunked call's result, fed into RecordOutcome (spec §4.4
// Inputs).
type Outcome struct {
	ChunkSize     int
	DurationMs    float64
	Success       bool
	IsSocketError bool
}

// RecordOutcome updates the rolling histogram for this session.
func (s *Session) RecordOutcome(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[o.ChunkSize]
	if !ok {
		b = &bucket{}
		s.buckets[o.ChunkSize] = b
	}
	if o.Success {
		b.successCount++
	} else {
		b.failureCount++
		if o.IsSocketError {
			b.socketErrCount++
		}
	}
	b.totalDurationMs += o.DurationMs
	s.samples++
}

// Recommend returns {initial, max, confidence} given the accumulated
// state and the operation's cold-start defaults as a floor/ceiling.
func (s *Session) Recommend() Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	def := coldStartDefaults[s.Operation]
	if s.samples == 0 {
		metrics.OptimizerConfidence.WithLabelValues(s.Network, string(s.Operation)).Set(0)
		return Recommendation{Initial: def.Initial, Max: def.Max, Confidence: 0}
	}

	// optimal observed size: the largest bucket with a success rate >=0.8
	// and at least 3 samples, mirroring spec's "optimal observed batch
	// size" concept from NetworkLogDensityStats/ChunkOptimizerSession.
	bestSize := def.Initial
	for size, b := range s.buckets {
		n := b.successCount + b.failureCount
		if n < 3 {
			continue
		}
		successRate := float64(b.successCount) / float64(n)
		if successRate >= 0.8 && size > bestSize {
			bestSize = size
		}
	}

	confidence := math.Min(1.0, float64(s.samples)/float64(confidenceSampleCap))
	metrics.OptimizerConfidence.WithLabelValues(s.Network, string(s.Operation)).Set(confidence)
	return Recommendation{Initial: bestSize, Max: def.Max, Confidence: confidence}
}

// AdjustForDuration implements spec §4.4's adjustment rule, applied inside
// chunkOperation: grow aggressively on fast responses relative to
// targetDurationMs, hold within band, shrink on slow ones. Result is
// floored/capped to [min, max].
func AdjustForDuration(currentSize int, durationMs, targetDurationMs float64, min, max int) int {
	var factor float64
	switch {
	case durationMs < 800:
		factor = 5
	case durationMs < 2000:
		factor = 3
	case durationMs < 4000:
		factor = 2
	case durationMs < targetDurationMs:
		factor = 1.5
	case durationMs <= targetDurationMs*1.5:
		factor = 1 // within target band: hold
	case durationMs <= targetDurationMs*3:
		factor = 0.7 // slow
	default:
		factor = 0.5 // very slow
	}
	next := int(math.Round(float64(currentSize) * factor))
	return clamp(next, min, max)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ShrinkForFailure implements spec §4.5 step 3's shrink rule: ×0.3 for
// socket-class errors, ×0.5 otherwise, floored to min.
func ShrinkForFailure(currentSize int, isSocketError bool, min int) int {
	factor := 0.5
	if isSocketError {
		factor = 0.3
	}
	next := int(math.Floor(float64(currentSize) * factor))
	if next < min {
		next = min
	}
	if next < minChunkSize {
		next = minChunkSize
	}
	return next
}

// Snapshot is the serializable form of a Session, persisted to
// chunk_optimizer_sessions.data (jsonb) by internal/store.
type Snapshot struct {
	Network   string               `json:"network"`
	Operation Operation            `json:"operation"`
	Samples   int                  `json:"samples"`
	Buckets   map[string]BucketDTO `json:"buckets"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type BucketDTO struct {
	SuccessCount    int     `json:"success_count"`
	FailureCount    int     `json:"failure_count"`
	SocketErrCount  int     `json:"socket_err_count"`
	TotalDurationMs float64 `json:"total_duration_ms"`
}

// ToSnapshot serializes the session for persistence.
func (s *Session) ToSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{
		Network:   s.Network,
		Operation: s.Operation,
		Samples:   s.samples,
		Buckets:   make(map[string]BucketDTO, len(s.buckets)),
		UpdatedAt: time.Now(),
	}
	for size, b := range s.buckets {
		out.Buckets[strconv.Itoa(size)] = BucketDTO{
			SuccessCount:    b.successCount,
			FailureCount:    b.failureCount,
			SocketErrCount:  b.socketErrCount,
			TotalDurationMs: b.totalDurationMs,
		}
	}
	return out
}

// FromSnapshot rebuilds a Session from a persisted snapshot (round-trip
// law, spec §8: "Persist then load a ChunkOptimizerSession -> identical
// {initial, max, confidence}").
func FromSnapshot(snap Snapshot) *Session {
	s := NewSession(snap.Network, snap.Operation)
	s.samples = snap.Samples
	for sizeStr, dto := range snap.Buckets {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			continue
		}
		s.buckets[size] = &bucket{
			successCount:    dto.SuccessCount,
			failureCount:    dto.FailureCount,
			socketErrCount:  dto.SocketErrCount,
			totalDurationMs: dto.TotalDurationMs,
		}
	}
	return s
}
