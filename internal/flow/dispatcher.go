package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fidcomex/sacbox/internal/broker/messages"
	"github.com/fidcomex/sacbox/internal/integrations/chatapi"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
	"github.com/pkg/errors"
)

// ErrBadRequest marks dispatch outcomes the HTTP layer answers with 400:
// missing mandatory fields or an unrecognized command. No handler ran and no
// trigger was signaled.
var ErrBadRequest = errors.New("bad request")

// OrderSearcher is the slice of the orders service the handlers consume.
type OrderSearcher interface {
	Search(ctx context.Context, term string, kind pgorders.SearchKind) ([]*models.OrderRecord, error)
	WithTracking(ctx context.Context, records []*models.OrderRecord) []*models.OrderRecord
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Request is one inbound webhook command.
type Request struct {
	ContactID string
	SessionID string
	Command   string
	Text      string
}

// Result is the sole channel by which the caller (and the bot orchestrator)
// learns the outcome. Every handler path produces exactly one.
type Result struct {
	Flag    Flag   `json:"flag"`
	Message string `json:"message"`

	// TriggerError reports a failed trigger-signal callback. Messages already
	// sent to the customer are not rolled back.
	TriggerError string `json:"triggerError,omitempty"`
}

type handlerFunc func(ctx context.Context, req Request) (Result, error)

type Dispatcher struct {
	orders   OrderSearcher
	notifier chatapi.Notifier
	signaler chatapi.Signaler
	hours    *BusinessHours

	producer Producer
	topic    string

	handlers map[Command]handlerFunc

	// Commands that end the script with no bot-graph continuation; no flag
	// is posted back for them.
	skipTrigger map[Command]struct{}
}

func NewDispatcher(orders OrderSearcher, notifier chatapi.Notifier, signaler chatapi.Signaler, hours *BusinessHours) *Dispatcher {
	d := &Dispatcher{
		orders:   orders,
		notifier: notifier,
		signaler: signaler,
		hours:    hours,
		skipTrigger: map[Command]struct{}{
			CmdEnviaNFECliente: {},
		},
	}
	d.handlers = map[Command]handlerFunc{
		CmdValidaCpf:                 d.handleValidaCpf,
		CmdRastreioPeloPedido:        d.handleRastreioPeloPedido,
		CmdNfePeloPedido:             d.handleNfePeloPedido,
		CmdEnviaNFECliente:           d.handleEnviaNFECliente,
		CmdValidaCpfParaTroca:        d.handleValidaCpfParaTroca,
		CmdValidaPedidoParaTroca:     d.handleValidaPedidoParaTroca,
		CmdValidaEmailOutrosAssuntos: d.handleValidaEmailOutrosAssuntos,
	}
	return d
}

// WithProducer enables best-effort publication of handled commands to the
// conversation audit topic.
func (d *Dispatcher) WithProducer(p Producer, topic string) *Dispatcher {
	if p != nil && topic != "" {
		d.producer = p
		d.topic = topic
	}
	return d
}

// Dispatch validates the request, runs the command's handler and signals the
// resolved flag to the bot orchestrator. A non-nil error means no flag was
// signaled: ErrBadRequest for gate failures, anything else is unexpected and
// maps to HTTP 500 at the boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.ContactID == "" || req.Command == "" || strings.TrimSpace(req.Text) == "" {
		return Result{Flag: FlagError, Message: msgDadosObrigatorios}, ErrBadRequest
	}

	cmd, ok := ParseCommand(req.Command)
	if !ok {
		return Result{
			Flag:    FlagUnknownCommand,
			Message: fmt.Sprintf("Comando não reconhecido: %s", req.Command),
		}, ErrBadRequest
	}

	res, err := d.run(ctx, cmd, req)
	if err != nil {
		slog.Error("handler failed", "command", string(cmd), "contact_id", req.ContactID, "error", err.Error())
		return Result{Flag: FlagError, Message: err.Error()}, err
	}

	if _, skip := d.skipTrigger[cmd]; !skip {
		if terr := d.signaler.TriggerFlag(ctx, req.SessionID, req.ContactID, string(res.Flag)); terr != nil {
			slog.Error("trigger signal failed", "command", string(cmd), "flag", string(res.Flag), "error", terr.Error())
			res.TriggerError = terr.Error()
		}
	}

	d.publishHandled(ctx, cmd, req, res)

	slog.Info("command handled", "command", string(cmd), "contact_id", req.ContactID, "flag", string(res.Flag))
	return res, nil
}

// run executes the handler with a panic guard: a panicking handler becomes
// an unexpected error instead of taking the process down.
func (d *Dispatcher) run(ctx context.Context, cmd Command, req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	req.Text = strings.TrimSpace(req.Text)
	return d.handlers[cmd](ctx, req)
}

func (d *Dispatcher) publishHandled(ctx context.Context, cmd Command, req Request, res Result) {
	if d.producer == nil {
		return
	}
	ev := messages.ConversationHandled{
		ContactID: req.ContactID,
		SessionID: req.SessionID,
		Command:   string(cmd),
		Flag:      string(res.Flag),
		Message:   res.Message,
		HandledAt: time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := d.producer.Publish(ctx, d.topic, []byte(req.ContactID), b); err != nil {
		slog.Warn("publish conversation event", "error", err.Error())
	}
}
