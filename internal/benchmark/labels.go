// Package benchmark holds cross-package benchmarks for channels, the
// scheduler and streams.
package benchmark

import "strconv"

// sizeLabel returns a readable label for benchmark sizes.
func sizeLabel(size int) string {
	switch {
	case size >= 1000:
		return strconv.Itoa(size/1000) + "k"
	default:
		return strconv.Itoa(size)
	}
}

// workerLabel returns a readable label for worker counts.
func workerLabel(workers int) string {
	return strconv.Itoa(workers) + "workers"
}
