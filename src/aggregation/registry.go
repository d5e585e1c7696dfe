package aggregation

import (
	"sort"
	"sync"

	"market-aggregator/src/models"
	"market-aggregator/src/utils"
)

// -----------------------------------------------------------------------------
// Instrument is everything owned for one symbol.
// -----------------------------------------------------------------------------

type Instrument struct {
	Class     string
	State     models.MInstrumentState
	Buffer    *utils.HistoryBuffer // daily cadence only
	LastError string
}

// -----------------------------------------------------------------------------
// Registry maps symbols to their instruments. The update loop is the only
// writer; the lock lets status readers take consistent snapshots.
// -----------------------------------------------------------------------------

type Registry struct {
	instruments map[string]*Instrument
	window      int
	daily       bool
	mu          sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewRegistry(window int, daily bool) *Registry {
	return &Registry{
		instruments: make(map[string]*Instrument),
		window:      window,
		daily:       daily,
	}
}

// -----------------------------------------------------------------------------

// Add registers symbol under class. Re-adding a symbol changes only its class.
func (r *Registry) Add(symbol, class string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instruments[symbol]; ok {
		inst.Class = class
		return
	}

	inst := &Instrument{Class: class, State: models.MInstrumentState{Symbol: symbol}}
	if r.daily {
		inst.Buffer = utils.NewHistoryBuffer(r.window)
	}
	r.instruments[symbol] = inst
}

// -----------------------------------------------------------------------------

// Get returns the state and buffer of symbol.
func (r *Registry) Get(symbol string) (models.MInstrumentState, *utils.HistoryBuffer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instruments[symbol]
	if !ok {
		return models.MInstrumentState{}, nil, false
	}
	return inst.State, inst.Buffer, true
}

// -----------------------------------------------------------------------------

// Commit stores the state returned by a successful update.
func (r *Registry) Commit(symbol string, state models.MInstrumentState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instruments[symbol]; ok {
		inst.State = state
		inst.LastError = ""
	}
}

// Fail records the error of a failed update; the state is left alone.
func (r *Registry) Fail(symbol string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instruments[symbol]; ok {
		inst.LastError = err.Error()
	}
}

// -----------------------------------------------------------------------------

// Symbols returns the sorted symbols of class, or all symbols when class is "".
func (r *Registry) Symbols(class string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.instruments))
	for sym, inst := range r.instruments {
		if class == "" || inst.Class == class {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns how many symbols belong to class.
func (r *Registry) Count(class string) int {
	return len(r.Symbols(class))
}

// -----------------------------------------------------------------------------

// Statuses returns one entry per symbol, sorted by symbol.
func (r *Registry) Statuses() []models.MSymbolStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MSymbolStatus, 0, len(r.instruments))
	for sym, inst := range r.instruments {
		st := models.MSymbolStatus{
			Symbol:        sym,
			Class:         inst.Class,
			Initialized:   inst.State.Initialized,
			LastPublished: inst.State.LastPublished,
			LastError:     inst.LastError,
		}
		if inst.Buffer != nil {
			st.BufferLength = inst.Buffer.Len()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// -----------------------------------------------------------------------------

// History returns a copy of the rolling buffer of symbol. ok is false for
// unknown symbols and for intraday cadences.
func (r *Registry) History(symbol string) ([]models.MRecord, bool) {
	r.mu.RLock()
	inst, ok := r.instruments[symbol]
	r.mu.RUnlock()

	if !ok || inst.Buffer == nil {
		return nil, false
	}
	return inst.Buffer.Snapshot(), true
}
