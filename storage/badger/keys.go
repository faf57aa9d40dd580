package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/prodmatch/core"
)

// Key prefixes for different data types
const (
	trainingRecordPrefix = "trnrec"
	trainingOrderPrefix  = "trnord"
	trainingPairPrefix   = "trnpair"
	trainingIDSeq        = "trnrecseq"
	trainingOrderSeq     = "trnordseq"
	catalogRecordPrefix  = "catrec"
	fastModelKey         = "model:fast"
	scorerModelKey       = "model:scorer"
)

// makeTrainingRecordKey generates a key for a training example by ID.
func makeTrainingRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", trainingRecordPrefix, id))
}

// makeTrainingOrderKey generates a composite key for the insertion-order
// index. Format: prefix:seq
func makeTrainingOrderKey(seq uint64) []byte {
	prefix := trainingOrderPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeTrainingPairKey generates a key for the duplicate-detection index.
// The key embeds the BLAKE2b content ID of the example's trimmed
// (query, code) pair, so whitespace variants of the same pair collide.
func makeTrainingPairKey(pairID core.ID) []byte {
	prefix := trainingPairPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(pairID))
	return buf
}

// makeCatalogRecordKey generates a key for a catalog entry by its position
// in load order. Format: prefix:position
func makeCatalogRecordKey(position uint64) []byte {
	prefix := catalogRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], position)
	return buf
}
