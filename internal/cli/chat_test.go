package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/mfierros/routina/internal/advisor"
	"github.com/mfierros/routina/internal/assistant"
	"github.com/mfierros/routina/internal/catalog"
	"github.com/mfierros/routina/internal/conversation"
	"github.com/mfierros/routina/internal/selection"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, []conversation.Message, int) (string, error) {
	return s.reply, s.err
}

var testProducts = []catalog.Product{
	{ID: 1, Name: "Hydra Cleanser", Brand: "CeraVe", Category: "cleanser", Description: "Gentle foaming cleanser"},
	{ID: 2, Name: "Night Cream", Brand: "Olay", Category: "moisturizer", Description: "Rich night moisturizer"},
	{ID: 3, Name: "Daily Serum", Brand: "The Ordinary", Category: "serum", Description: "Hyaluronic acid serum"},
}

func newTestChatModel(completer advisor.Completer) chatModel {
	adv := advisor.New(selection.New(nil, nil), nil, completer, nil, nil, advisor.Options{})
	return newChatModel(adv, nil, testProducts)
}

func TestFilterDebounceDropsStaleTicks(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})

	// Two keystrokes in quick succession: each schedules a tick with its
	// own sequence number.
	m.filterInput.SetValue("cle")
	first := m.filterSeq
	if cmd := m.scheduleFilter(); cmd == nil {
		t.Fatal("scheduleFilter returned no command")
	}
	m.filterInput.SetValue("cleanser")
	m.scheduleFilter()

	// The first tick arrives stale and must not apply the filter.
	updated, _ := m.Update(filterTickMsg{seq: first + 1})
	m = updated.(chatModel)
	if len(m.filtered) != len(testProducts) {
		t.Errorf("stale tick applied the filter: %d products shown", len(m.filtered))
	}

	// The newest tick applies it.
	updated, _ = m.Update(filterTickMsg{seq: m.filterSeq})
	m = updated.(chatModel)
	if len(m.filtered) != 1 || m.filtered[0].Name != "Hydra Cleanser" {
		t.Errorf("filtered = %+v, want only the cleanser", m.filtered)
	}
}

func TestCategoryCycling(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})

	m.cycleCategory(1)
	if got := m.categories[m.categoryIdx]; got != "cleanser" {
		t.Fatalf("category = %q, want cleanser (sorted first)", got)
	}
	if len(m.filtered) != 1 {
		t.Errorf("filtered = %d products, want 1", len(m.filtered))
	}

	m.cycleCategory(-1)
	if got := m.categories[m.categoryIdx]; got != "" {
		t.Errorf("category = %q, want all", got)
	}
	if len(m.filtered) != len(testProducts) {
		t.Errorf("filtered = %d products, want all", len(m.filtered))
	}
}

func TestFailedCompletionReplacesPlaceholder(t *testing.T) {
	m := newTestChatModel(stubCompleter{err: &assistant.CallError{Status: 503, Detail: "overloaded"}})
	m.adv.Send(context.Background(), "what cleanser?")
	m.waiting = true

	updated, _ := m.Update(replyMsg{err: &assistant.CallError{Status: 503, Detail: "overloaded"}})
	m = updated.(chatModel)

	if m.waiting {
		t.Error("still waiting after reply")
	}

	view := m.renderContent()
	if strings.Contains(view, "Thinking...") {
		t.Error("placeholder still visible after failure")
	}
	if !strings.Contains(view, "503") {
		t.Errorf("error line missing upstream status:\n%s", view)
	}
	if strings.Contains(view, "Routina: ") {
		t.Error("assistant line rendered for a failed call")
	}
}

func TestUserMessageRenderedOnceWhileWaiting(t *testing.T) {
	m := newTestChatModel(stubCompleter{err: &assistant.CallError{Status: 503, Detail: "overloaded"}})
	m.adv.Send(context.Background(), "what cleanser?")
	m.waiting = true

	view := m.renderContent()
	if got := strings.Count(view, "what cleanser?"); got != 1 {
		t.Errorf("user message rendered %d times while waiting, want 1", got)
	}
	if !strings.Contains(view, "Thinking...") {
		t.Error("placeholder not shown while waiting")
	}
}

func TestSubmitChatIgnoredWhileWaiting(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})
	m.waiting = true
	m.chatInput.SetValue("second question")

	_, cmd := m.submitChat()
	if cmd != nil {
		t.Error("submission issued while a request was outstanding")
	}
}

func TestRoutineWithoutSelectionsIsFriendly(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})

	updated, cmd := m.submitRoutine()
	m = updated.(chatModel)

	if cmd != nil {
		t.Error("routine submitted with no selections")
	}
	if m.failedLine != advisor.NoSelectionsReply {
		t.Errorf("failedLine = %q", m.failedLine)
	}
}

func TestToggleHighlightedSelectsProduct(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})
	m.cursor = 1

	m.toggleHighlighted()
	if !m.adv.Selections().Contains(2) {
		t.Error("highlighted product not selected")
	}
	m.toggleHighlighted()
	if m.adv.Selections().Contains(2) {
		t.Error("second toggle did not deselect")
	}
}

func TestDirectionToggle(t *testing.T) {
	m := newTestChatModel(stubCompleter{reply: "ok"})

	if m.direction != "ltr" {
		t.Fatalf("initial direction = %q", m.direction)
	}
	m.toggleDirection()
	if m.direction != "rtl" {
		t.Errorf("direction = %q, want rtl", m.direction)
	}
}
