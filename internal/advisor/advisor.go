// Package advisor coordinates conversation state, product selection, web
// search and the assistant client for one user session. Its outputs are
// plain data (transcript, selection list) so both the cobra commands and
// the interactive TUI can render them.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/mfierros/routina/internal/conversation"
	"github.com/mfierros/routina/internal/metrics"
	"github.com/mfierros/routina/internal/selection"
	"github.com/mfierros/routina/internal/websearch"
)

var (
	// ErrBusy means a completion for the same control is still in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyMessage means the user submitted only whitespace.
	ErrEmptyMessage = errors.New("empty message")

	// ErrNoSelections means a routine was requested with nothing selected.
	ErrNoSelections = errors.New("no products selected")
)

// NoSelectionsReply is what the transcript shows when a routine is
// requested without selections.
const NoSelectionsReply = "Please select one or more products before generating a routine."

// Completer produces an assistant reply for a prepared message sequence.
type Completer interface {
	Complete(ctx context.Context, messages []conversation.Message, maxTokens int) (string, error)
}

// Searcher fetches external search results; nil results mean unavailable.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) []websearch.Result
}

// Options holds the fixed request parameters.
type Options struct {
	ChatMaxTokens    int
	RoutineMaxTokens int
}

// Advisor owns the session state and drives the assistant.
type Advisor struct {
	history    *conversation.History
	selections *selection.Store
	searcher   Searcher
	completer  Completer
	collector  *metrics.Collector
	logger     *slog.Logger
	opts       Options

	searchEnabled bool

	// One outstanding completion per control, mirroring the UI controls
	// that disable themselves while a call runs.
	chatBusy    atomic.Bool
	routineBusy atomic.Bool
}

// New creates an advisor over the given collaborators.
func New(selections *selection.Store, searcher Searcher, completer Completer, collector *metrics.Collector, logger *slog.Logger, opts Options) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if opts.ChatMaxTokens <= 0 {
		opts.ChatMaxTokens = 500
	}
	if opts.RoutineMaxTokens <= 0 {
		opts.RoutineMaxTokens = 700
	}
	return &Advisor{
		history:    conversation.NewHistory(),
		selections: selections,
		searcher:   searcher,
		completer:  completer,
		collector:  collector,
		logger:     logger,
		opts:       opts,
	}
}

// Transcript returns the full conversation in append order.
func (a *Advisor) Transcript() []conversation.Message {
	return a.history.Messages()
}

// Selections returns the selection store.
func (a *Advisor) Selections() *selection.Store {
	return a.selections
}

// Metrics returns the session's metrics snapshot.
func (a *Advisor) Metrics() metrics.Snapshot {
	return a.collector.Snapshot()
}

// SetSearchEnabled toggles search augmentation for subsequent messages.
func (a *Advisor) SetSearchEnabled(enabled bool) {
	a.searchEnabled = enabled
}

// SearchEnabled reports whether augmentation is both requested and
// configured.
func (a *Advisor) SearchEnabled() bool {
	return a.searchEnabled && a.searcher != nil && a.searcher.Enabled()
}

// Send submits one user message and returns the assistant's reply.
//
// Appends happen in fixed order: the user message, then (with search
// enabled and results found) one system note, then, only on success,
// the assistant reply. A failed call leaves no assistant entry; the
// caller replaces its pending placeholder with the error text.
func (a *Advisor) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	if !a.chatBusy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer a.chatBusy.Store(false)

	a.history.AddUser(text)
	a.augmentWithSearch(ctx, text, websearch.QueryNote)

	return a.complete(ctx, a.opts.ChatMaxTokens)
}

// routineItem is the product shape embedded in the routine instruction.
type routineItem struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// GenerateRoutine asks the assistant for a personalized routine built from
// the current selections.
func (a *Advisor) GenerateRoutine(ctx context.Context) (string, error) {
	if !a.routineBusy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer a.routineBusy.Store(false)

	products := a.selections.Products()
	if len(products) == 0 {
		return "", ErrNoSelections
	}

	items := make([]routineItem, 0, len(products))
	names := make([]string, 0, len(products))
	for _, p := range products {
		items = append(items, routineItem{
			ID:          p.ID,
			Name:        p.Name,
			Brand:       p.Brand,
			Category:    p.Category,
			Description: p.Description,
		})
		names = append(names, p.Name)
	}

	a.history.AddUser("Generate a personalized routine based on these selected products: " + strings.Join(names, ", "))

	payload, err := json.MarshalIndent(map[string][]routineItem{"selectedProducts": items}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode selected products: %w", err)
	}
	a.history.AddUser("Please generate a clear, ordered personalized routine (AM/PM, why to use each product, warnings) using only the following selected products JSON:\n\n" + string(payload))

	query := strings.Join(names, "; ") + " skincare product information"
	a.augmentWithSearch(ctx, query, func(_ string, results []websearch.Result) string {
		return websearch.ProductsNote(results)
	})

	return a.complete(ctx, a.opts.RoutineMaxTokens)
}

// augmentWithSearch runs one search and appends a system note when it
// yields results. Search unavailability or emptiness appends nothing.
func (a *Advisor) augmentWithSearch(ctx context.Context, query string, note func(string, []websearch.Result) string) {
	if !a.SearchEnabled() {
		return
	}

	var results []websearch.Result
	a.collector.Time(metrics.OpWebSearch, func() error {
		results = a.searcher.Search(ctx, query)
		return nil
	})
	if len(results) == 0 {
		return
	}
	a.history.AddSystem(note(query, results))
}

// complete prepares the history and runs one completion, appending the
// reply on success only.
func (a *Advisor) complete(ctx context.Context, maxTokens int) (string, error) {
	prepared := conversation.PrepareForRequest(a.history.Messages())

	var reply string
	err := a.collector.Time(metrics.OpCompletion, func() error {
		var err error
		reply, err = a.completer.Complete(ctx, prepared, maxTokens)
		return err
	})
	if err != nil {
		a.logger.Error("completion failed", "error", err)
		return "", err
	}

	a.history.AddAssistant(reply)
	return reply, nil
}
