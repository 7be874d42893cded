package stats

import (
	"sync"
	"time"
)

// TimeSeries manages a bounded time series of float values.
// Appends beyond MaxLength evict the oldest point.
type TimeSeries struct {
	Name       string
	Data       []float64
	Timestamps []int64 // Unix nano timestamps
	MaxLength  int
	mu         sync.RWMutex
}

// NewTimeSeries creates a new time series
func NewTimeSeries(name string, maxLength int) *TimeSeries {
	return &TimeSeries{
		Name:       name,
		Data:       make([]float64, 0, maxLength),
		Timestamps: make([]int64, 0, maxLength),
		MaxLength:  maxLength,
	}
}

// Append adds a new data point (thread safe)
func (ts *TimeSeries) Append(value float64, timestamp int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Data = append(ts.Data, value)
	ts.Timestamps = append(ts.Timestamps, timestamp)

	if len(ts.Data) > ts.MaxLength {
		ts.Data = ts.Data[1:]
		ts.Timestamps = ts.Timestamps[1:]
	}
}

// AppendNow adds a data point stamped with the current time
func (ts *TimeSeries) AppendNow(value float64) {
	ts.Append(value, time.Now().UnixNano())
}

// GetLast returns a copy of the most recent n data points
func (ts *TimeSeries) GetLast(n int) []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if n <= 0 || n > len(ts.Data) {
		n = len(ts.Data)
	}

	if n == 0 {
		return []float64{}
	}

	result := make([]float64, n)
	copy(result, ts.Data[len(ts.Data)-n:])
	return result
}

// GetAll returns a copy of all data points
func (ts *TimeSeries) GetAll() []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	result := make([]float64, len(ts.Data))
	copy(result, ts.Data)
	return result
}

// Len returns the current number of data points
func (ts *TimeSeries) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.Data)
}

// Last returns the most recent data point
func (ts *TimeSeries) Last() (float64, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if len(ts.Data) == 0 {
		return 0, false
	}
	return ts.Data[len(ts.Data)-1], true
}

// Stats computes rolling window statistics over the series
func (ts *TimeSeries) Stats(period int) RollingWindowStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return CalculateRollingStats(ts.Data, period)
}

// Clear empties the series
func (ts *TimeSeries) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Data = make([]float64, 0, ts.MaxLength)
	ts.Timestamps = make([]int64, 0, ts.MaxLength)
}
