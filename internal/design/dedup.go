package design

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Row deduplication for sparse design matrices.
//
// Row identity is exact elementwise equality on canonical float64 bits:
// -0 equals +0 and NaN equals NaN, so a reconstruction check can never be
// tripped up by IEEE comparison quirks. Hash buckets are verified with a
// full comparison, so a colliding pair of distinct rows still deduplicates
// correctly. The first occurrence of each pattern wins construction order.

// dedupRows returns the unique rows of full (first-occurrence order) and a
// 1-based index mapping every original row to its unique row.
func dedupRows(full [][]float64, p int) (unique [][]float64, index []int) {
	index = make([]int, len(full))
	buckets := make(map[uint64][]int, len(full))

	var d xxhash.Digest
	var word [8]byte

	for i, row := range full {
		d.Reset()
		for _, v := range row {
			binary.LittleEndian.PutUint64(word[:], canonicalBits(v))
			d.Write(word[:])
		}
		h := d.Sum64()

		pos := -1
		for _, u := range buckets[h] {
			if rowsEqual(unique[u], row) {
				pos = u
				break
			}
		}
		if pos < 0 {
			pos = len(unique)
			unique = append(unique, row)
			buckets[h] = append(buckets[h], pos)
		}
		index[i] = pos + 1
	}
	return unique, index
}

// canonicalBits collapses -0 into +0 and all NaN payloads into one NaN.
func canonicalBits(v float64) uint64 {
	if v == 0 {
		return 0
	}
	if math.IsNaN(v) {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(v)
}

func rowsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if canonicalBits(a[i]) != canonicalBits(b[i]) {
			return false
		}
	}
	return true
}

// verifyReconstruction returns the first original row the index fails to
// reproduce, or -1 when the invariant holds.
func verifyReconstruction(full, unique [][]float64, index []int) int {
	if len(index) != len(full) {
		return 0
	}
	for i, row := range full {
		u := index[i] - 1
		if u < 0 || u >= len(unique) || !rowsEqual(unique[u], row) {
			return i
		}
	}
	return -1
}
