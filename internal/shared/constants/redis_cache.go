package constants

import (
	"fmt"
	"time"
)

// Redis keys follow seatline:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "seatline"
)

// Default TTLs, overridable through config
const (
	TTL_TRIP_MANIFEST = 2 * time.Minute // reservation list of a trip
	TTL_PRICE_QUOTE   = 1 * time.Hour   // price lists change by publishing a new version
	TTL_BATCH_LOCK    = 2 * time.Minute // upper bound for processing one device batch
)

const (
	CACHE_KEY_TRIP_MANIFEST = CACHE_PREFIX + ":trips:manifest:"    // + trip id
	CACHE_KEY_PRICE_QUOTE   = CACHE_PREFIX + ":pricing:quote:"     // + route:category:from:to:date
	LOCK_KEY_DEVICE_BATCH   = CACHE_PREFIX + ":tickets:batchlock:" // + device id
	RATE_LIMIT_KEY_PREFIX   = CACHE_PREFIX + ":ratelimit:"
)

func BuildTripManifestKey(tripID int64) string {
	return fmt.Sprintf("%s%d", CACHE_KEY_TRIP_MANIFEST, tripID)
}

func BuildPriceQuoteKey(routeID, categoryID, fromStationID, toStationID int64, date time.Time) string {
	return fmt.Sprintf("%s%d:%d:%d:%d:%s", CACHE_KEY_PRICE_QUOTE, routeID, categoryID, fromStationID, toStationID, date.Format("2006-01-02"))
}

func BuildDeviceBatchLockKey(deviceID string) string {
	return LOCK_KEY_DEVICE_BATCH + deviceID
}
