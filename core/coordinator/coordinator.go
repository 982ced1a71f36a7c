package coordinator

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/logger"
	"github.com/kilianp07/cew/core/model"
)

// Planner is the part of the engine the coordinator drives.
type Planner interface {
	Plan(prices []model.PriceInterval, forecast []model.ForecastInterval, cfg engine.Config) (*engine.Plan, error)
	Evaluate(plan *engine.Plan, now time.Time, status engine.Status) engine.Result
}

type entry struct {
	fingerprint string
	cfg         engine.Config
	plan        *engine.Plan
	err         error
}

// Coordinator memoises the latest plan of each day and recomputes it only
// when the fingerprint of its inputs changes. Concurrent updates with the same
// inputs share one computation; a computation finishing after a newer request
// for the same day is discarded, so the cache always holds the newest inputs.
type Coordinator struct {
	planner Planner
	log     logger.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	entries   map[model.Day]entry
	requested map[model.Day]string
}

// New returns a Coordinator driving planner.
func New(planner Planner, log logger.Logger) *Coordinator {
	return &Coordinator{
		planner:   planner,
		log:       logger.OrNop(log),
		entries:   make(map[model.Day]entry),
		requested: make(map[model.Day]string),
	}
}

// Update plans day for the given inputs. It reports whether a new plan was
// computed; an unchanged fingerprint returns the cached outcome.
func (c *Coordinator) Update(day model.Day, prices []model.PriceInterval, forecast []model.ForecastInterval, cfg engine.Config) (bool, error) {
	fp := engine.Fingerprint(prices, forecast, cfg)
	c.mu.Lock()
	cur, ok := c.entries[day]
	if ok && cur.fingerprint == fp {
		c.mu.Unlock()
		return false, cur.err
	}
	c.requested[day] = fp
	c.mu.Unlock()

	v, _, shared := c.group.Do(string(day)+"/"+fp, func() (any, error) {
		plan, err := c.planner.Plan(prices, forecast, cfg)
		e := entry{fingerprint: fp, cfg: cfg, plan: plan, err: err}
		c.mu.Lock()
		if c.requested[day] == fp {
			c.entries[day] = e
		} else {
			c.log.Debugf("plan %s superseded, discarding", day)
		}
		c.mu.Unlock()
		return e, nil
	})
	e := v.(entry)
	if e.err != nil {
		c.log.Warnf("plan %s failed: %v", day, e.err)
	} else if !shared {
		c.log.Debugf("plan %s recomputed (%d intervals)", day, len(e.plan.Intervals))
	}
	return true, e.err
}

// Evaluate returns the state of day at now. Days never planned, or whose
// last plan failed, yield the fallback result.
func (c *Coordinator) Evaluate(day model.Day, now time.Time, status engine.Status, cfg engine.Config) engine.Result {
	c.mu.RLock()
	e, ok := c.entries[day]
	c.mu.RUnlock()
	switch {
	case !ok:
		return engine.Fallback(cfg, fmt.Errorf("no plan for %s", day))
	case e.err != nil:
		return engine.Fallback(e.cfg, e.err)
	}
	return c.planner.Evaluate(e.plan, now, status)
}

// Plan returns the cached plan of day.
func (c *Coordinator) Plan(day model.Day) (*engine.Plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[day]
	if !ok || e.err != nil {
		return nil, false
	}
	return e.plan, true
}

// Reset drops the cached plan of day.
func (c *Coordinator) Reset(day model.Day) {
	c.mu.Lock()
	delete(c.entries, day)
	delete(c.requested, day)
	c.mu.Unlock()
}
