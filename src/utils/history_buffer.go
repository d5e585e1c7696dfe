package utils

import (
	"fmt"
	"sync"

	"market-aggregator/src/models"
)

// -----------------------------------------------------------------------------
// HistoryBuffer is the fixed-length rolling window of the most recent daily
// records of one symbol. Once bootstrapped it always holds exactly Capacity
// records, oldest first. Order comes from how it is filled, never from sorting.
// -----------------------------------------------------------------------------

type HistoryBuffer struct {
	data     []models.MRecord
	capacity int
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryBuffer{capacity: capacity}
}

// -----------------------------------------------------------------------------

// ApplyBootstrap replaces the contents wholesale. records must hold exactly
// Capacity entries in chronological order.
func (hb *HistoryBuffer) ApplyBootstrap(records []models.MRecord) error {
	if len(records) != hb.capacity {
		return fmt.Errorf("bootstrap needs %d records, got %d", hb.capacity, len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			return fmt.Errorf("bootstrap records out of order at index %d", i)
		}
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()

	hb.data = make([]models.MRecord, hb.capacity)
	copy(hb.data, records)
	return nil
}

// -----------------------------------------------------------------------------

// RollAppend evicts index 0, shifts the rest one slot left and writes record
// at the last index.
func (hb *HistoryBuffer) RollAppend(record models.MRecord) error {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if len(hb.data) != hb.capacity {
		return fmt.Errorf("roll on a buffer that was never bootstrapped")
	}

	copy(hb.data, hb.data[1:])
	hb.data[hb.capacity-1] = record
	return nil
}

// -----------------------------------------------------------------------------

// Newest returns the last record, false while empty.
func (hb *HistoryBuffer) Newest() (models.MRecord, bool) {
	hb.mu.RLock()
	defer hb.mu.RUnlock()

	if len(hb.data) == 0 {
		return models.MRecord{}, false
	}
	return hb.data[len(hb.data)-1], true
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the contents, oldest first.
func (hb *HistoryBuffer) Snapshot() []models.MRecord {
	hb.mu.RLock()
	defer hb.mu.RUnlock()

	out := make([]models.MRecord, len(hb.data))
	copy(out, hb.data)
	return out
}

// -----------------------------------------------------------------------------

func (hb *HistoryBuffer) Len() int {
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	return len(hb.data)
}

func (hb *HistoryBuffer) Capacity() int {
	return hb.capacity
}

func (hb *HistoryBuffer) IsFull() bool {
	return hb.Len() == hb.capacity
}
