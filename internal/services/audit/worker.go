// Package audit persists the conversation audit trail: every handled webhook
// command is consumed from the broker and written to conversa_evento.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fidcomex/sacbox/internal/broker/messages"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/pkg/errors"
)

type Store interface {
	InsertConversaEvento(ctx context.Context, ev models.ConversaEvento) error
}

type Consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type Worker struct {
	store    Store
	consumer Consumer

	retryDelay time.Duration

	startedAtUnixNano int64
	lastEventUnixNano atomic.Int64
	totalConsumed     atomic.Int64
	totalMalformed    atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(store Store, consumer Consumer) *Worker {
	return &Worker{
		store:             store,
		consumer:          consumer,
		retryDelay:        3 * time.Second,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastEventAt    *time.Time `json:"lastEventAt,omitempty"`
	TotalConsumed  int64      `json:"totalConsumed"`
	TotalMalformed int64      `json:"totalMalformed"`
	TotalErrors    int64      `json:"totalErrors"`
	LastError      string     `json:"lastError,omitempty"`
}

func (w *Worker) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalConsumed:  w.totalConsumed.Load(),
		TotalMalformed: w.totalMalformed.Load(),
		TotalErrors:    w.totalErrors.Load(),
	}
	if n := w.lastEventUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastEventAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

// Run consumes until the context is canceled, reconnecting after transient
// broker errors.
func (w *Worker) Run(ctx context.Context) error {
	for {
		err := w.consumer.Consume(ctx, w.handleMessage)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.totalErrors.Add(1)
		w.setLastError(err)
		slog.Error("consume conversation events", "error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retryDelay):
		}
	}
}

// handleMessage maps one ConversationHandled event to a conversa_evento row.
// A malformed payload is skipped rather than retried: redelivery would fail
// the same way and stall the partition.
func (w *Worker) handleMessage(key, value []byte) error {
	var ev messages.ConversationHandled
	if err := json.Unmarshal(value, &ev); err != nil {
		w.totalMalformed.Add(1)
		slog.Warn("malformed conversation event", "key", string(key), "error", err.Error())
		return nil
	}
	if ev.ContactID == "" || ev.Command == "" {
		w.totalMalformed.Add(1)
		slog.Warn("incomplete conversation event", "key", string(key))
		return nil
	}

	row := models.ConversaEvento{
		ContactID: ev.ContactID,
		SessionID: ev.SessionID,
		Comando:   ev.Command,
		Flag:      ev.Flag,
		Mensagem:  ev.Message,
		CriadoEm:  ev.HandledAt,
	}
	if err := w.store.InsertConversaEvento(context.Background(), row); err != nil {
		w.totalErrors.Add(1)
		w.setLastError(err)
		return errors.Wrap(err, "persist conversation event")
	}

	w.totalConsumed.Add(1)
	w.lastEventUnixNano.Store(time.Now().UTC().UnixNano())
	return nil
}

func (w *Worker) setLastError(err error) {
	w.lastErrorMu.Lock()
	w.lastError = err.Error()
	w.lastErrorMu.Unlock()
}
