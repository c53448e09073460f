package state

import "github.com/ethereum/go-ethereum/metrics"

var (
	cacheHitMeter    = metrics.NewRegisteredMeter("state/cache/hit", nil)
	cacheMissMeter   = metrics.NewRegisteredMeter("state/cache/miss", nil)
	commitSlotsMeter = metrics.NewRegisteredMeter("state/commit/slots", nil)
)
