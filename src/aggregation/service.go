package aggregation

import (
	"context"
	"sync"
	"time"

	"market-aggregator/src/config"
	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/utils"
)

// -----------------------------------------------------------------------------
// ServiceDeps are the collaborators of an AggregationService.
// -----------------------------------------------------------------------------

type ServiceDeps struct {
	Source    interfaces.IDataSource
	Publisher interfaces.IPublisher
	Calendar  interfaces.ITradingCalendar
	Clock     interfaces.IClock // defaults to the wall clock
}

// -----------------------------------------------------------------------------
// AggregationService owns every instrument and drives
// scheduler -> update engine -> publisher, one symbol at a time.
// -----------------------------------------------------------------------------

type AggregationService struct {
	Name             string
	Cadence          models.MCadence
	Engine           *UpdateEngine
	Scheduler        *utils.MarketScheduler
	Limiter          *utils.RateLimiter
	Publisher        interfaces.IPublisher
	Clock            interfaces.IClock
	Registry         *Registry
	BootstrapOnStart bool
	RequestsPerHour  int
	Logger           *logger.Logger

	statusMu sync.RWMutex
	status   models.MServiceStatus
}

// -----------------------------------------------------------------------------

// NewAggregationService validates the cadence and symbol lists and wires the
// core components. A symbol listed in both classes is treated as always-on.
func NewAggregationService(cfg *config.Config, marketSymbols, alwaysOnSymbols []string, deps ServiceDeps) (*AggregationService, error) {
	log := logger.NewLogger(cfg, "AggregationService")

	cadence, err := models.ParseCadence(cfg.Cadence)
	if err != nil {
		return nil, helpers.NewConfigurationError(err, "cannot start aggregation")
	}
	if len(marketSymbols) == 0 && len(alwaysOnSymbols) == 0 {
		return nil, helpers.NewConfigurationError(nil, "no symbols to aggregate")
	}
	if deps.Source == nil || deps.Publisher == nil || deps.Calendar == nil {
		return nil, helpers.NewConfigurationError(nil, "aggregation needs a data source, a publisher and a calendar")
	}

	clock := deps.Clock
	if clock == nil {
		clock = utils.RealClock{}
	}

	open, err := config.ParseClock(cfg.Market.OpenTime)
	if err != nil {
		return nil, helpers.NewConfigurationError(err, "invalid market open time")
	}
	closeAt, err := config.ParseClock(cfg.Market.CloseTime)
	if err != nil {
		return nil, helpers.NewConfigurationError(err, "invalid market close time")
	}

	registry := NewRegistry(cfg.History.Window, cadence.IsDaily())
	alwaysOn := make(map[string]bool, len(alwaysOnSymbols))
	for _, sym := range alwaysOnSymbols {
		alwaysOn[sym] = true
		registry.Add(sym, models.ClassAlwaysOn)
	}
	for _, sym := range marketSymbols {
		if alwaysOn[sym] {
			log.Warning("%s is listed as both market-hours and always-on, polling it always", sym)
			continue
		}
		registry.Add(sym, models.ClassMarketHours)
	}

	engine := NewUpdateEngine(deps.Source, cadence, cfg.History.Window, deps.Calendar.Location())
	engine.Clock = clock
	engine.SettleAfter = closeAt + cfg.Grace()

	s := &AggregationService{
		Name:    cfg.Name,
		Cadence: cadence,
		Engine:  engine,
		Scheduler: utils.NewMarketScheduler(cadence, deps.Calendar, open, closeAt,
			cfg.Grace(),
			time.Duration(cfg.Schedule.LeadMinutes)*time.Minute),
		Limiter:          utils.NewRateLimiter(cfg.Provider.RequestsPerHour, clock),
		Publisher:        deps.Publisher,
		Clock:            clock,
		Registry:         registry,
		BootstrapOnStart: cfg.Schedule.BootstrapOnStart,
		RequestsPerHour:  cfg.Provider.RequestsPerHour,
		Logger:           log,
	}

	s.status = models.MServiceStatus{
		Name:          cfg.Name,
		Cadence:       cadence,
		MarketCount:   registry.Count(models.ClassMarketHours),
		AlwaysOnCount: registry.Count(models.ClassAlwaysOn),
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// Run loops until ctx is cancelled. Cancellation is a clean stop, not an error.
func (s *AggregationService) Run(ctx context.Context) error {
	now := s.Clock.Now()
	s.setStatus(func(st *models.MServiceStatus) { st.StartedAt = now })
	s.logEstimates()

	if s.BootstrapOnStart {
		// market-hours symbols only on a trading day, like any trigger
		plan := utils.MCyclePlan{Trigger: now, Market: s.Scheduler.Calendar.IsTradingDay(now), AlwaysOn: true}
		s.Logger.Info("Bootstrapping before the first trigger (market-hours symbols: %v)", plan.Market)
		s.RunCycle(ctx, plan)
		if ctx.Err() != nil {
			return nil
		}
	}

	trigger := s.Scheduler.FirstTrigger(s.Clock.Now())
	for {
		s.setStatus(func(st *models.MServiceStatus) { st.NextTrigger = trigger })
		s.Logger.Info("Next update at %s", trigger.In(s.Engine.Location).Format(time.RFC3339))

		if err := s.Clock.SleepUntil(ctx, trigger); err != nil {
			s.Logger.Info("Stopping: %v", err)
			return nil
		}

		s.RunCycle(ctx, s.Scheduler.Plan(trigger))
		if ctx.Err() != nil {
			s.Logger.Info("Stopping mid-cycle: %v", ctx.Err())
			return nil
		}

		trigger, _ = s.Scheduler.Advance(trigger, s.Clock.Now())
	}
}

// -----------------------------------------------------------------------------

// RunCycle processes the classes named by plan, strictly sequentially.
func (s *AggregationService) RunCycle(ctx context.Context, plan utils.MCyclePlan) models.MCycleStats {
	stats := models.MCycleStats{
		Trigger:        plan.Trigger,
		StartedAt:      s.Clock.Now(),
		MarketPolled:   plan.Market,
		AlwaysOnPolled: plan.AlwaysOn,
	}

	hasMarket := s.Registry.Count(models.ClassMarketHours) > 0
	switch {
	case !hasMarket:
	case plan.PostClose:
		s.Logger.Info("Market is closed, doing the single post-close pull")
	case plan.Market:
		s.Logger.Info("Pulling market-hours symbols")
	default:
		s.Logger.Debug("Market-hours symbols not due at %s", plan.Trigger.Format(time.RFC3339))
	}
	if plan.Market && hasMarket {
		s.processClass(ctx, models.ClassMarketHours, &stats)
	}

	if plan.AlwaysOn && ctx.Err() == nil && s.Registry.Count(models.ClassAlwaysOn) > 0 {
		s.Logger.Info("Pulling always-on symbols")
		s.processClass(ctx, models.ClassAlwaysOn, &stats)
	}

	stats.DurationSeconds = s.Clock.Now().Sub(stats.StartedAt).Seconds()
	s.setStatus(func(st *models.MServiceStatus) {
		st.Cycles++
		st.LastCycle = stats
	})

	s.Logger.Info("Cycle done in %.1fs: %d updated, %d failed, %d records published",
		stats.DurationSeconds, stats.SymbolsUpdated, stats.SymbolsFailed, stats.RecordsPublished)
	return stats
}

// -----------------------------------------------------------------------------

func (s *AggregationService) processClass(ctx context.Context, class string, stats *models.MCycleStats) {
	for _, symbol := range s.Registry.Symbols(class) {
		if err := s.Limiter.Wait(ctx); err != nil {
			return
		}

		state, buffer, _ := s.Registry.Get(symbol)
		next, records, err := s.Engine.Update(ctx, state, buffer)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.Logger.Warning("Update of %s failed, skipping until next trigger: %v", symbol, err)
			s.Registry.Fail(symbol, err)
			stats.SymbolsFailed++
			continue
		}
		s.Registry.Commit(symbol, next)

		if len(records) == 0 {
			s.Logger.Debug("No new data for %s", symbol)
			continue
		}

		kind := models.KindUpdate
		if !state.Initialized {
			kind = models.KindBootstrap
		}

		n, err := s.Publisher.Publish(ctx, symbol, records, kind)
		if err != nil {
			s.Logger.Error("Publishing %s failed: %v", symbol, err)
		}
		stats.SymbolsUpdated++
		stats.RecordsPublished += n
	}
}

// -----------------------------------------------------------------------------

func (s *AggregationService) logEstimates() {
	for _, class := range []string{models.ClassMarketHours, models.ClassAlwaysOn} {
		n := s.Registry.Count(class)
		secs := utils.EstimateUpdateSeconds(n, s.RequestsPerHour)
		s.Logger.Info("%s: %d symbols, about %.0f seconds (%.2f hours) to update all",
			class, n, secs, secs/3600)
	}
}

// -----------------------------------------------------------------------------

func (s *AggregationService) setStatus(fn func(st *models.MServiceStatus)) {
	s.statusMu.Lock()
	fn(&s.status)
	s.statusMu.Unlock()
}

// Status returns a snapshot of the service.
func (s *AggregationService) Status() models.MServiceStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Symbols returns the status of every instrument.
func (s *AggregationService) Symbols() []models.MSymbolStatus {
	return s.Registry.Statuses()
}

// History returns the rolling buffer of symbol (daily cadence only).
func (s *AggregationService) History(symbol string) ([]models.MRecord, bool) {
	return s.Registry.History(symbol)
}
