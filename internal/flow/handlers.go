package flow

import (
	"context"
	"strings"

	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/services/orders"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
	"github.com/pkg/errors"
)

// handleValidaCpf validates the typed document, looks the customer up and
// sends the current shipment status for the most recent order.
func (d *Dispatcher) handleValidaCpf(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindDocumento)
	if errors.Is(err, orders.ErrDocumentoInvalido) {
		return Result{Flag: FlagCPFInvalido, Message: "CPF/CNPJ inválido"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{Flag: FlagRegistroNaoEncontrado, Message: msgNenhumRegistro}, nil
	}

	rec := d.latest(ctx, recs)
	if err := d.notifier.SendMessage(ctx, req.ContactID, rastreioMessage(rec)); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagRastreioEnviado, Message: msgRastreioEnviado}, nil
}

// handleRastreioPeloPedido answers the tracking link for one order code.
func (d *Dispatcher) handleRastreioPeloPedido(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindPedido)
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		flag := notFoundFlag(req.Text, FlagRegistroNaoEncontrado, FlagRegistroNaoEncontradoMeli)
		return Result{Flag: flag, Message: msgNenhumRegistro}, nil
	}

	rec := d.latest(ctx, recs)
	if err := d.notifier.SendMessage(ctx, req.ContactID, rastreioMessage(rec)); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagRastreioEnviado, Message: msgRastreioEnviado}, nil
}

// handleNfePeloPedido sends the invoice access key for one order code.
func (d *Dispatcher) handleNfePeloPedido(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindPedido)
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		flag := notFoundFlag(req.Text, FlagRegistroNaoEncontrado, FlagRegistroNaoEncontradoMeli)
		return Result{Flag: flag, Message: msgNenhumRegistro}, nil
	}

	if err := d.notifier.SendMessage(ctx, req.ContactID, nfeMessage(recs[0])); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagNFeEnviada, Message: msgNFeEnviada}, nil
}

// handleEnviaNFECliente is the document-keyed variant of the NFe flow. It is
// terminal: the dispatcher posts no flag back for it.
func (d *Dispatcher) handleEnviaNFECliente(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindDocumento)
	if errors.Is(err, orders.ErrDocumentoInvalido) {
		return Result{Flag: FlagCPFInvalido, Message: "CPF/CNPJ inválido"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{Flag: FlagRegistroNaoEncontrado, Message: msgNenhumRegistro}, nil
	}

	if err := d.notifier.SendMessage(ctx, req.ContactID, nfeMessage(recs[0])); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagNFeEnviada, Message: msgNFeEnviada}, nil
}

func (d *Dispatcher) handleValidaCpfParaTroca(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindDocumento)
	if errors.Is(err, orders.ErrDocumentoInvalido) {
		return Result{Flag: FlagCPFInvalido, Message: "CPF/CNPJ inválido"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{Flag: FlagRegistroNaoEncontradoTroca, Message: msgNenhumRegistro}, nil
	}
	return d.encaminhaTroca(ctx, req, recs[0])
}

func (d *Dispatcher) handleValidaPedidoParaTroca(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindPedido)
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		flag := notFoundFlag(req.Text, FlagRegistroNaoEncontradoTroca, FlagRegistroNaoEncontradoMeli)
		return Result{Flag: flag, Message: msgNenhumRegistro}, nil
	}
	return d.encaminhaTroca(ctx, req, recs[0])
}

// encaminhaTroca sends the order summary followed by the queue message, in
// that order, then routes by marketplace. The schedule only changes the
// second message, never the flag.
func (d *Dispatcher) encaminhaTroca(ctx context.Context, req Request, rec *models.OrderRecord) (Result, error) {
	if err := d.notifier.SendMessage(ctx, req.ContactID, resumoPedido(rec)); err != nil {
		return Result{}, err
	}

	sched, holidayMsg := d.hours.Status()
	if err := d.notifier.SendMessage(ctx, req.ContactID, queueMessage(sched, holidayMsg)); err != nil {
		return Result{}, err
	}

	if RoutesToMeli(rec.Portal, rec.MarketplacePedido) {
		return Result{Flag: FlagEncaminhaTrocaMeli, Message: "Encaminhado para troca Mercado Livre"}, nil
	}
	return Result{Flag: FlagEncaminhaTrocaSAC, Message: "Encaminhado para troca SAC"}, nil
}

// handleValidaEmailOutrosAssuntos accepts either an email address or a
// document and branches on found/not-found.
func (d *Dispatcher) handleValidaEmailOutrosAssuntos(ctx context.Context, req Request) (Result, error) {
	if strings.Contains(req.Text, "@") {
		return d.outrosAssuntosPorEmail(ctx, req)
	}
	return d.outrosAssuntosPorDocumento(ctx, req)
}

func (d *Dispatcher) outrosAssuntosPorEmail(ctx context.Context, req Request) (Result, error) {
	if !plausibleEmail(req.Text) {
		return Result{Flag: FlagEmailInvalido, Message: "E-mail inválido"}, nil
	}

	recs, err := d.orders.Search(ctx, strings.ToLower(req.Text), pgorders.KindEmail)
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{Flag: FlagEmailValido, Message: msgNenhumRegistro}, nil
	}

	if err := d.sendAtendimento(ctx, req); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagEmailEncontrado, Message: "Cadastro localizado"}, nil
}

func (d *Dispatcher) outrosAssuntosPorDocumento(ctx context.Context, req Request) (Result, error) {
	recs, err := d.orders.Search(ctx, req.Text, pgorders.KindDocumento)
	if errors.Is(err, orders.ErrDocumentoInvalido) {
		return Result{Flag: FlagCPFInvalidoOutrosAssuntos, Message: "CPF/CNPJ inválido"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{Flag: FlagCPFValidoOutrosAssuntos, Message: msgNenhumRegistro}, nil
	}

	if err := d.sendAtendimento(ctx, req); err != nil {
		return Result{}, err
	}
	return Result{Flag: FlagCPFEncontradoOutrosAssuntos, Message: "Cadastro localizado"}, nil
}

func (d *Dispatcher) sendAtendimento(ctx context.Context, req Request) error {
	sched, holidayMsg := d.hours.Status()
	if sched == ScheduleOpen {
		return d.notifier.SendMessage(ctx, req.ContactID, msgAtendenteLogo)
	}
	return d.notifier.SendMessage(ctx, req.ContactID, queueMessage(sched, holidayMsg))
}

// latest enriches and returns the most recent record; routing and status
// messages only ever consult one.
func (d *Dispatcher) latest(ctx context.Context, recs []*models.OrderRecord) *models.OrderRecord {
	return d.orders.WithTracking(ctx, recs[:1])[0]
}

func plausibleEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return !strings.Contains(domain, "@") && strings.Contains(domain, ".") &&
		!strings.ContainsAny(s, " \t\n")
}
