package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch is the custom epoch (January 1, 2024 00:00:00 UTC) in milliseconds.
	Epoch int64 = 1704067200000

	workerIDBits uint8 = 10
	sequenceBits uint8 = 12

	workerIDMask int64 = -1 ^ (-1 << workerIDBits)
	sequenceMask int64 = -1 ^ (-1 << sequenceBits)

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

var (
	ErrInvalidWorkerID     = errors.New("worker ID exceeds maximum value")
	ErrClockMovedBackwards = errors.New("clock moved backwards")
)

// Generator produces sortable unique message IDs using the Snowflake
// layout: 41 bits of millisecond timestamp, 10 bits of worker ID and
// 12 bits of per-millisecond sequence.
type Generator struct {
	mu sync.Mutex

	epoch    int64
	workerID int64

	sequence      int64
	lastTimestamp int64
}

// Config holds the configuration for the generator. A zero Epoch
// falls back to the package default.
type Config struct {
	Epoch    int64
	WorkerID int64
}

// NewGenerator creates a generator bound to a single worker ID.
func NewGenerator(config Config) (*Generator, error) {
	if config.Epoch == 0 {
		config.Epoch = Epoch
	}
	if config.WorkerID < 0 || config.WorkerID > workerIDMask {
		return nil, ErrInvalidWorkerID
	}
	return &Generator{
		epoch:    config.Epoch,
		workerID: config.WorkerID,
	}, nil
}

// NextID generates the next unique ID. IDs from a single generator are
// strictly increasing.
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := currentTimestamp()
	if timestamp < g.lastTimestamp {
		return 0, ErrClockMovedBackwards
	}

	if timestamp == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		// Sequence exhausted within this millisecond, spin to the next one.
		if g.sequence == 0 {
			timestamp = waitNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = timestamp

	id := ((timestamp - g.epoch) << timestampShift) |
		(g.workerID << workerIDShift) |
		g.sequence
	return id, nil
}

// Timestamp extracts the creation time encoded in an ID.
func (g *Generator) Timestamp(id int64) time.Time {
	ms := (id >> timestampShift) + g.epoch
	return time.UnixMilli(ms)
}

// WorkerID extracts the worker ID encoded in an ID.
func (g *Generator) WorkerID(id int64) int64 {
	return (id >> workerIDShift) & workerIDMask
}

func currentTimestamp() int64 {
	return time.Now().UnixMilli()
}

func waitNextMillis(last int64) int64 {
	ts := currentTimestamp()
	for ts <= last {
		ts = currentTimestamp()
	}
	return ts
}
