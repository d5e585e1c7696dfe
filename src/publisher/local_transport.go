package publisher

import (
	"context"

	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"github.com/asaskevich/EventBus"
)

// WildcardTopic receives the messages of every symbol.
const WildcardTopic = "*"

// -----------------------------------------------------------------------------
// LocalTransport delivers messages to in-process subscribers through an
// event bus. Handlers run synchronously, so per-symbol order is preserved.
// -----------------------------------------------------------------------------

type LocalTransport struct {
	bus EventBus.Bus
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{bus: EventBus.New()}
}

// NewLoggingLocalTransport returns a LocalTransport with a wildcard
// subscriber that logs each message through log.
func NewLoggingLocalTransport(log *logger.Logger) (*LocalTransport, error) {
	t := NewLocalTransport()
	err := t.Subscribe(WildcardTopic, func(m models.MMessage) {
		log.Info("%s %s %s close=%g", m.Kind, m.Symbol, m.Timestamp.Format("2006-01-02 15:04"), m.Record.Close)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *LocalTransport) Name() string {
	return "local"
}

func (t *LocalTransport) Start(ctx context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

func (t *LocalTransport) Send(ctx context.Context, msg models.MMessage) error {
	t.bus.Publish(msg.Symbol, msg)
	t.bus.Publish(WildcardTopic, msg)
	return nil
}

// -----------------------------------------------------------------------------

// Subscribe registers fn for symbol, or for every symbol when symbol is
// WildcardTopic or empty.
func (t *LocalTransport) Subscribe(symbol string, fn func(models.MMessage)) error {
	if symbol == "" {
		symbol = WildcardTopic
	}
	return t.bus.Subscribe(symbol, fn)
}

func (t *LocalTransport) Unsubscribe(symbol string, fn func(models.MMessage)) error {
	if symbol == "" {
		symbol = WildcardTopic
	}
	return t.bus.Unsubscribe(symbol, fn)
}

func (t *LocalTransport) Stop() error {
	t.bus.WaitAsync()
	return nil
}
