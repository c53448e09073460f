package core

import "github.com/ethereum/go-ethereum/metrics"

var (
	actionAppliedMeter  = metrics.NewRegisteredMeter("staking/action/applied", nil)
	actionFailedMeter   = metrics.NewRegisteredMeter("staking/action/failed", nil)
	actionRejectedMeter = metrics.NewRegisteredMeter("staking/action/rejected", nil)
	applyTimer          = metrics.NewRegisteredTimer("staking/action/apply_time", nil)
)
