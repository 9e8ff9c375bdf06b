package responses

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - t/{tenant}/resp/{survey}/m
// - t/{tenant}/resp/{survey}/e/{seq_be8}

var (
	sep          = byte('/')
	tenantPrefix = []byte("t/")
	respSeg      = []byte("/resp/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyMeta builds the per-(tenant,survey) metadata key holding the last
// assigned sequence.
func keyMeta(tenant, survey string) []byte {
	k := make([]byte, 0, len(tenant)+len(survey)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, respSeg...)
	k = append(k, survey...)
	k = append(k, metaSuffix...)
	return k
}

// keyEntry builds the document key with a big-endian sequence for ordering.
func keyEntry(tenant, survey string, seq uint64) []byte {
	k := make([]byte, 0, len(tenant)+len(survey)+32)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, respSeg...)
	k = append(k, survey...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// keyEntryPrefix returns the range prefix covering all documents of a
// (tenant,survey) pair.
func keyEntryPrefix(tenant, survey string) []byte {
	k := make([]byte, 0, len(tenant)+len(survey)+16)
	k = append(k, tenantPrefix...)
	k = append(k, tenant...)
	k = append(k, respSeg...)
	k = append(k, survey...)
	k = append(k, entrySeg...)
	return k
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
