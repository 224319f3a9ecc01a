package badger

import (
	"encoding/binary"
)

const (
	cacheEntryPrefix    = "cacent:"
	programRecordPrefix = "prgrec:"
	programRecordIDSeq  = "prgrecseq"
	regionTablePrefix   = "regtab:"
	regionInstitutions  = regionTablePrefix + "institutions"
	regionSchools       = regionTablePrefix + "schools"
)

// makeCacheKey generates the key for a cache entry.
func makeCacheKey(key string) []byte {
	return []byte(cacheEntryPrefix + key)
}

// makeProgramRecordKey generates a key for a program record by sequence number.
// Format: prefix + 8 byte big-endian sequence so iteration follows insertion order.
func makeProgramRecordKey(seq uint64) []byte {
	prefixBytes := []byte(programRecordPrefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
