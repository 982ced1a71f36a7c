package engine

import (
	"time"

	"github.com/kilianp07/cew/core/model"
)

// EnergyPoint is one step of the simulated battery balance. BalanceWh is the
// stored energy at the end of the interval; it is negative only at the
// discharge interval where a deficit occurred.
type EnergyPoint struct {
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	Action    model.State `json:"action"`
	BalanceWh float64     `json:"balance_wh"`
}

type simulator struct {
	slots  []model.PriceInterval
	energy []float64
	cfg    Config
}

// run replays the plan chronologically and returns the trace and the index
// of the first discharge interval with a negative balance, or -1.
func (s simulator) run(charge, discharge map[int]bool) ([]EnergyPoint, int) {
	cfg := s.cfg
	balance := cfg.InitialSOCPct / 100 * cfg.UsableCapacityWh
	deficit := -1
	trace := make([]EnergyPoint, len(s.slots))
	for i, slot := range s.slots {
		h := slot.Hours()
		action := model.StateIdle
		if charge[i] {
			balance += cfg.ChargePowerW * h * cfg.RoundTripEfficiency
			action = model.StateCharge
		}
		if s.energy != nil {
			balance += s.energy[i] - cfg.ConsumptionW*h
		}
		if cfg.UsableCapacityWh > 0 && balance > cfg.UsableCapacityWh {
			balance = cfg.UsableCapacityWh
		}
		if discharge[i] {
			balance -= cfg.DischargePowerW * h
			action = model.StateDischarge
			if balance < -tolerance && deficit < 0 {
				deficit = i
			}
		}
		if !discharge[i] && balance < 0 {
			balance = 0
		}
		trace[i] = EnergyPoint{Start: slot.Start, End: slot.End, Action: action, BalanceWh: balance}
		if balance < 0 {
			balance = 0
		}
	}
	return trace, deficit
}

// repairResult is the outcome of the bounded repair loop.
type repairResult struct {
	charge     []int
	trace      []EnergyPoint
	iterations int
	shortfall  bool
}

// repair adds the cheapest eligible charge window preceding each deficit and
// re-simulates until the plan is feasible or a bound is reached. A window is
// only added when it still pays off against the discharge at the deficit.
// The loop runs at most len(slots) times and never grows the charge set past
// limit.
func (s simulator) repair(charge, discharge []int, eligible func(int) bool, limit int) repairResult {
	isCharge := indexSet(charge)
	isDischarge := indexSet(discharge)
	res := repairResult{charge: append([]int(nil), charge...)}
	for {
		trace, deficit := s.run(isCharge, isDischarge)
		res.trace = trace
		if deficit < 0 {
			break
		}
		if res.iterations >= len(s.slots) || len(res.charge) >= limit {
			res.shortfall = true
			break
		}
		pick := -1
		for i, slot := range s.slots {
			if isCharge[i] || isDischarge[i] || !eligible(i) || !slot.Start.Before(s.slots[deficit].Start) {
				continue
			}
			if pick < 0 || slot.AdjustedValue < s.slots[pick].AdjustedValue {
				pick = i
			}
		}
		if pick < 0 || !s.profitable(pick, deficit) {
			res.shortfall = true
			break
		}
		isCharge[pick] = true
		res.charge = append(res.charge, pick)
		res.iterations++
	}
	res.charge = chronological(s.slots, res.charge)
	return res
}

// profitable reports whether energy bought at charge and sold at discharge
// covers the round trip losses and the minimum price difference.
func (s simulator) profitable(charge, discharge int) bool {
	buy := s.slots[charge].AdjustedValue
	sell := s.slots[discharge].AdjustedValue
	return buy/s.cfg.RoundTripEfficiency < sell && sell-buy >= s.cfg.MinPriceDiff
}
