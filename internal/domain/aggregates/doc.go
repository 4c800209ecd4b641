// Package aggregates declares the write boundaries whose invariants must hold atomically,
// and the error codes their implementations report. Persistence lives in data/aggregates.
package aggregates
