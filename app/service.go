package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cew/api/windows"
	"github.com/kilianp07/cew/config"
	"github.com/kilianp07/cew/connectors"
	connfactory "github.com/kilianp07/cew/connectors/factory"
	"github.com/kilianp07/cew/core/coordinator"
	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/events"
	"github.com/kilianp07/cew/core/forecast"
	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/monitoring"
	coremqtt "github.com/kilianp07/cew/core/mqtt"
	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/core/pricing"
	"github.com/kilianp07/cew/infra/logger"
	"github.com/kilianp07/cew/infra/metrics"
	"github.com/kilianp07/cew/internal/eventbus"
)

var days = []model.Day{model.DayToday, model.DayTomorrow}

// Service receives prices, forecasts and battery readings over MQTT, keeps
// a plan per day and publishes the resulting states.
type Service struct {
	cfg     *config.Config
	coord   *coordinator.Coordinator
	adapter pricing.Adapter
	source  connectors.PriceSource
	client  coremqtt.Client
	sink    coremetrics.MetricsSink
	bus     *eventbus.Bus[events.Event]
	log     logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	series    pricing.Series
	hasPrices bool
	forecasts map[string][]model.ForecastInterval
	forecast  []model.ForecastInterval
	status    engine.Status
	latest    map[model.Day]windows.Snapshot
	published map[model.Day]model.State

	// refreshMu serialises evaluations so published states stay ordered.
	refreshMu sync.Mutex
	trigger   chan struct{}
}

// New wires a Service. A nil sink records nothing.
func New(cfg *config.Config, client coremqtt.Client, sink coremetrics.MetricsSink) (*Service, error) {
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	adapter, err := pricing.New(cfg.Prices.Format, pricing.Options{Location: cfg.Prices.Location})
	if err != nil {
		return nil, err
	}
	var source connectors.PriceSource
	if cfg.Prices.Source != nil {
		if source, err = connfactory.NewPriceSource(*cfg.Prices.Source); err != nil {
			return nil, err
		}
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	log := logger.New("service")
	return &Service{
		cfg:       cfg,
		coord:     coordinator.New(engine.New(logger.New("engine")), logger.New("coordinator")),
		adapter:   adapter,
		source:    source,
		client:    client,
		sink:      sink,
		bus:       eventbus.New[events.Event](0),
		log:       log,
		now:       time.Now,
		forecasts: make(map[string][]model.ForecastInterval),
		latest:    make(map[model.Day]windows.Snapshot),
		published: make(map[model.Day]model.State),
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Bus exposes the event bus for additional subscribers.
func (s *Service) Bus() *eventbus.Bus[events.Event] { return s.bus }

type input struct {
	topic  string
	handle func([]byte) error
}

// Subscribe registers the MQTT input handlers.
func (s *Service) Subscribe() error {
	qos := s.cfg.MQTT.InputQoS
	inputs := []input{
		{s.cfg.Prices.Topic, s.HandlePrices},
		{s.cfg.MQTT.SOCTopic, s.HandleSOC},
	}
	for _, topic := range s.cfg.Prices.ForecastTopics {
		inputs = append(inputs, input{topic, func(payload []byte) error { return s.HandleForecast(topic, payload) }})
	}
	for _, in := range inputs {
		if in.topic == "" {
			continue
		}
		handle := in.handle
		topic := in.topic
		if err := s.client.Subscribe(topic, qos, func(m coremqtt.Message) {
			if err := handle(m.Payload()); err != nil {
				s.log.Warnf("input on %s rejected: %v", topic, err)
				return
			}
			s.poke()
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Run subscribes to the inputs, starts the metrics collector, the HTTP API
// and the remote price poller, and evaluates both days every update interval
// and whenever an input changes. It returns when ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Subscribe(); err != nil {
		return err
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	if s.source != nil {
		go s.pollLoop(ctx)
	}

	var srv *http.Server
	if addr := s.cfg.Service.HTTPAddr; addr != "" {
		srv = &http.Server{Addr: addr, Handler: windows.NewRouter(s, logger.New("http")), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			defer monitoring.Recover()
			s.log.Infof("HTTP API listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Errorf("http server: %v", err)
				monitoring.CaptureException(err, map[string]string{"component": "http"})
			}
		}()
	}

	ticker := time.NewTicker(s.cfg.Service.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			s.bus.Close()
			s.client.Disconnect()
			return nil
		case <-ticker.C:
			s.Refresh()
		case <-s.trigger:
			s.Refresh()
		}
	}
}

func (s *Service) pollLoop(ctx context.Context) {
	defer monitoring.Recover()
	ticker := time.NewTicker(s.cfg.Prices.PollInterval())
	defer ticker.Stop()
	for {
		if err := s.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warnf("poll prices: %v", err)
			monitoring.CaptureException(err, map[string]string{"component": "price_source"})
		} else {
			s.poke()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches today and tomorrow from the remote price source. It is a
// no-op when no source is configured.
func (s *Service) Poll(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	series, err := connectors.FetchSeries(ctx, s.source, s.now(), s.cfg.Prices.Loc())
	if err != nil {
		return err
	}
	s.setSeries(series)
	return nil
}

func (s *Service) poke() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// HandlePrices decodes a price payload with the configured adapter.
func (s *Service) HandlePrices(payload []byte) error {
	series, err := s.adapter.Parse(payload)
	if err != nil {
		return fmt.Errorf("parse prices: %w", err)
	}
	s.setSeries(series)
	return nil
}

func (s *Service) setSeries(series pricing.Series) {
	s.mu.Lock()
	s.series = series
	s.hasPrices = true
	s.mu.Unlock()
	s.log.Infof("prices updated: %d today, %d tomorrow (valid=%t)", len(series.Today), len(series.Tomorrow), series.TomorrowValid)
}

// HandleForecast decodes the Forecast.Solar payload received on topic. The
// latest payload of every topic is kept and the planned forecast is their
// sum.
func (s *Service) HandleForecast(topic string, payload []byte) error {
	fc, err := forecast.ParseForecastSolar(payload, s.cfg.Prices.Loc())
	if err != nil {
		return fmt.Errorf("parse forecast: %w", err)
	}
	s.mu.Lock()
	s.forecasts[topic] = fc
	sets := make([][]model.ForecastInterval, 0, len(s.forecasts))
	for _, t := range slices.Sorted(maps.Keys(s.forecasts)) {
		sets = append(sets, s.forecasts[t])
	}
	merged := forecast.Merge(sets...)
	s.forecast = merged
	s.mu.Unlock()
	s.log.Infof("solar forecast %s updated: %.0f Wh, %.0f Wh over %d arrays",
		topic, forecast.TotalWh(fc), forecast.TotalWh(merged), len(sets))
	return nil
}

// HandleSOC accepts a bare number or {"soc": number}. Non-numeric states
// such as "unavailable" mark the reading unknown.
func (s *Service) HandleSOC(payload []byte) error {
	status, err := parseSOC(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	return nil
}

func parseSOC(payload []byte) (engine.Status, error) {
	raw := strings.TrimSpace(string(payload))
	var v float64
	if strings.HasPrefix(raw, "{") {
		var body struct {
			SOC *float64 `json:"soc"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return engine.Status{}, fmt.Errorf("decode soc: %w", err)
		}
		if body.SOC == nil {
			return engine.Status{}, nil
		}
		v = *body.SOC
	} else {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return engine.Status{}, nil
		}
		v = f
	}
	if v < 0 || v > 100 {
		return engine.Status{}, fmt.Errorf("soc %v out of range", v)
	}
	return engine.Status{SOCPct: v, Known: true}, nil
}

// Refresh plans and evaluates both days at the current time.
func (s *Service) Refresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	series, hasPrices, fc, status := s.series, s.hasPrices, s.forecast, s.status
	s.mu.RUnlock()
	if !hasPrices {
		s.log.Debugf("no prices yet, skipping evaluation")
		return
	}
	now := s.now()
	for _, day := range days {
		prices := series.Day(day)
		if day == model.DayTomorrow && len(prices) == 0 {
			s.coord.Reset(day)
			s.mu.Lock()
			delete(s.latest, day)
			s.mu.Unlock()
			continue
		}
		s.evaluate(day, prices, s.forecastFor(fc, prices), status, now)
	}
}

func (s *Service) forecastFor(fc []model.ForecastInterval, prices []model.PriceInterval) []model.ForecastInterval {
	if len(fc) == 0 || len(prices) == 0 {
		return nil
	}
	return forecast.ForDay(fc, prices[0].Start.In(s.cfg.Prices.Loc()))
}

func (s *Service) evaluate(day model.Day, prices []model.PriceInterval, fc []model.ForecastInterval, status engine.Status, now time.Time) {
	cfg := s.cfg.EngineFor(day)
	runID := uuid.NewString()
	start := time.Now()
	recomputed, err := s.coord.Update(day, prices, fc, cfg)
	res := s.coord.Evaluate(day, now, status, cfg)
	elapsed := time.Since(start)

	snap := windows.Snapshot{RunID: runID, Day: day, EvaluatedAt: now, Result: res}
	if plan, ok := s.coord.Plan(day); ok {
		snap.Prices = plan.Intervals
	}
	s.mu.Lock()
	s.latest[day] = snap
	prev, seen := s.published[day]
	s.mu.Unlock()

	s.bus.Publish(events.CalculationEvent{
		RunID:      runID,
		Day:        day,
		Time:       now,
		Duration:   elapsed,
		Recomputed: recomputed,
		Err:        err,
		Result:     res,
	})
	tags := map[string]string{"day": string(day), "run_id": runID}
	switch {
	case recomputed && err != nil:
		monitoring.CaptureException(err, tags)
	case recomputed:
		s.log.Infof("%s plan: %d charge, %d discharge windows, spread %.1f%%",
			day, len(res.Selection.ChargeWindows), len(res.Selection.DischargeWindows), res.Diagnostics.SpreadPct)
	}

	if err := s.publishAttributes(day, runID, res); err != nil {
		s.log.Errorf("publish %s attributes: %v", day, err)
		reportPublish(err, tags)
	}
	if seen && prev == res.State {
		return
	}
	if err := s.publishState(day, res.State); err != nil {
		s.log.Errorf("publish %s state: %v", day, err)
		reportPublish(err, tags)
		return
	}
	s.mu.Lock()
	s.published[day] = res.State
	s.mu.Unlock()
	s.log.Infof("%s state %s -> %s (%s)", day, prev, res.State, res.Diagnostics.Reason)
	s.bus.Publish(events.StateChangedEvent{
		RunID:    runID,
		Day:      day,
		Time:     now,
		Previous: prev,
		Current:  res.State,
		Reason:   res.Diagnostics.Reason,
		Price:    res.Diagnostics.CurrentPrice,
		Status:   status,
	})
}

// reportPublish skips disconnections, which paho recovers from on its own.
func reportPublish(err error, tags map[string]string) {
	if errors.Is(err, coremqtt.ErrNotConnected) {
		return
	}
	monitoring.CaptureException(err, tags)
}

// StateTopic is where the state of day is published.
func (s *Service) StateTopic(day model.Day) string {
	return s.cfg.Service.StateTopicPrefix + "/" + string(day) + "/state"
}

// AttributesTopic is where the diagnostics of day are published.
func (s *Service) AttributesTopic(day model.Day) string {
	return s.cfg.Service.StateTopicPrefix + "/" + string(day) + "/attributes"
}

func (s *Service) publishState(day model.Day, state model.State) error {
	return s.client.Publish(s.StateTopic(day), s.cfg.MQTT.StateQoS, true, []byte(state))
}

type attributes struct {
	RunID string `json:"run_id"`
	engine.Diagnostics
}

func (s *Service) publishAttributes(day model.Day, runID string, res engine.Result) error {
	payload, err := json.Marshal(attributes{RunID: runID, Diagnostics: res.Diagnostics})
	if err != nil {
		return err
	}
	return s.client.Publish(s.AttributesTopic(day), s.cfg.MQTT.StateQoS, true, payload)
}

// Latest returns the most recent evaluation of day.
func (s *Service) Latest(day model.Day) (windows.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[day]
	return snap, ok
}
