package util

// MetricsBucketsMilliSeconds are the histogram buckets of ledger operations, in
// seconds from 1ms to 4s. A purchase holds row locks for its whole duration, so
// the upper buckets show lock contention.
var MetricsBucketsMilliSeconds = []float64{
	1e-3, 2e-3, 4e-3, 16e-3, 32e-3, 64e-3, 128e-3, 256e-3, 512e-3, 1024e-3, 2048e-3, 4096e-3,
}
