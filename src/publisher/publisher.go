package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Publisher turns new records into one message each and sends them to every
// transport, then archives them when an archive is configured.
// -----------------------------------------------------------------------------

type Publisher struct {
	Cadence    models.MCadence
	Transports []interfaces.ITransport
	Archive    interfaces.IDatabase
	Logger     *logger.Logger
	now        func() time.Time
}

// -----------------------------------------------------------------------------

func NewPublisher(cadence models.MCadence, transports []interfaces.ITransport, archive interfaces.IDatabase) *Publisher {
	return &Publisher{
		Cadence:    cadence,
		Transports: transports,
		Archive:    archive,
		Logger:     logger.NewLogger(nil, "Publisher"),
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// Start binds every transport once. A transport that fails to start aborts
// startup and the ones already started are stopped again.
func (p *Publisher) Start(ctx context.Context) error {
	for i, t := range p.Transports {
		if err := t.Start(ctx); err != nil {
			for _, started := range p.Transports[:i] {
				_ = started.Stop()
			}
			return helpers.NewPublishError(err, "failed to start transport %s", t.Name())
		}
		p.Logger.Info("Transport %s started", t.Name())
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop releases every transport.
func (p *Publisher) Stop() error {
	var errs []error
	for _, t := range p.Transports {
		if err := t.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------

// Publish emits one message per record, in the given order, keyed by symbol.
// It returns the number of messages built; transport and archive failures are
// logged and joined into the error without stopping delivery elsewhere.
func (p *Publisher) Publish(ctx context.Context, symbol string, records []models.MRecord, kind string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	publishedAt := p.now().UTC()
	msgs := make([]models.MMessage, len(records))
	for i, r := range records {
		msgs[i] = models.MMessage{
			ID:          uuid.NewString(),
			Symbol:      symbol,
			Cadence:     p.Cadence,
			Kind:        kind,
			Timestamp:   r.Timestamp,
			Record:      r,
			PublishedAt: publishedAt,
		}
	}

	var errs []error
	for _, t := range p.Transports {
		for _, msg := range msgs {
			if err := t.Send(ctx, msg); err != nil {
				p.Logger.Error("Transport %s failed for %s: %v", t.Name(), symbol, err)
				errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
				break
			}
		}
	}

	if p.Archive != nil {
		if err := p.Archive.SaveMessages(msgs); err != nil {
			p.Logger.Error("Archiving %d messages for %s failed: %v", len(msgs), symbol, err)
			errs = append(errs, err)
		}
	}

	p.Logger.Debug("Published %d %s messages for %s", len(msgs), kind, symbol)

	if len(errs) > 0 {
		return len(msgs), helpers.NewPublishError(errors.Join(errs...), "publish %s", symbol)
	}
	return len(msgs), nil
}
