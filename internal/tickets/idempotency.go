package tickets

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

const idempotencyContext = "seatline 2026 ticket batch idempotency key"

// IdempotencyKey derives the dedupe key of a synced ticket. installID
// names the queue file on the device, whose local ids restart when it is
// recreated. Fields are length prefixed so no separator inside a device id
// can collide.
func IdempotencyKey(deviceID, installID, localID string, tripID int64) string {
	hasher := blake3.NewDeriveKey(idempotencyContext)
	for _, field := range []string{deviceID, installID, localID, strconv.FormatInt(tripID, 10)} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		hasher.Write(size[:])
		hasher.Write([]byte(field))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
