package transform

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"logiflow/internal/dataset"
)

// rowKey returns the xxh3 hash of the concatenated key column values.
// Nulls hash as a marker byte so that two null keys compare equal, the way
// a dataframe dedupe treats missing values.
func rowKey(row dataset.Row, keys []string) uint64 {
	h := xxh3.New()
	for _, k := range keys {
		if v, ok := row[k]; ok && !dataset.IsNull(v) {
			if s, ok := v.(string); ok {
				h.WriteString(s)
			} else {
				fmt.Fprint(h, v)
			}
		} else {
			h.Write([]byte{0x00})
		}
		h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

// dedupeByKey keeps the first row per distinct key and drops the rest.
// Row order is preserved.
func dedupeByKey(ds *dataset.Dataset, keys []string) *dataset.Dataset {
	seen := make(map[uint64]struct{}, ds.Len())
	return ds.Filter(func(row dataset.Row) bool {
		k := rowKey(row, keys)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}
