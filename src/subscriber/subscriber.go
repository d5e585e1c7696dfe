package subscriber

import (
	"context"
	"encoding/json"
	"strings"

	"market-aggregator/src/models"
)

// Handler receives every decoded message in delivery order.
type Handler func(models.MMessage)

// -----------------------------------------------------------------------------
// ISubscriber consumes published messages for a set of symbols.
// -----------------------------------------------------------------------------

type ISubscriber interface {
	// Subscribe blocks until ctx is done. No symbols means every symbol.
	Subscribe(ctx context.Context, symbols []string, handler Handler) error
}

// -----------------------------------------------------------------------------

// decode parses a payload, reporting false for control frames such as
// subscription acknowledgements.
func decode(payload []byte) (models.MMessage, bool, error) {
	var envelope struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return models.MMessage{}, false, err
	}
	if envelope.Command != "" {
		return models.MMessage{}, false, nil
	}

	var msg models.MMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.MMessage{}, false, err
	}
	return msg, true, nil
}

func normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && s != "*" {
			out = append(out, s)
		}
	}
	return out
}
