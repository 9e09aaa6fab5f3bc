package flow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fidcomex/sacbox/config"
	"github.com/fidcomex/sacbox/internal/broker/messages"
	chatfake "github.com/fidcomex/sacbox/internal/integrations/chatapi/fake"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/services/orders"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	recs []*models.OrderRecord
	err  error

	lastTerm string
	lastKind pgorders.SearchKind

	tracking      *models.TrackingInfo
	trackingCalls int
}

func (f *fakeOrders) Search(ctx context.Context, term string, kind pgorders.SearchKind) ([]*models.OrderRecord, error) {
	f.lastTerm, f.lastKind = term, kind
	return f.recs, f.err
}

func (f *fakeOrders) WithTracking(ctx context.Context, records []*models.OrderRecord) []*models.OrderRecord {
	f.trackingCalls++
	if f.tracking != nil {
		for _, r := range records {
			r.TrackingInfo = f.tracking
		}
	}
	return records
}

type panicOrders struct{}

func (panicOrders) Search(ctx context.Context, term string, kind pgorders.SearchKind) ([]*models.OrderRecord, error) {
	panic("boom")
}

func (panicOrders) WithTracking(ctx context.Context, records []*models.OrderRecord) []*models.OrderRecord {
	return records
}

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func hoursAt(t *testing.T, hour, min int, windows []config.HolidayWindow) *BusinessHours {
	t.Helper()
	b := mustHours(t, windows)
	loc := saoPaulo(t)
	// 2026-01-07 is a Wednesday.
	return b.WithNow(func() time.Time { return time.Date(2026, 1, 7, hour, min, 0, 0, loc) })
}

func openHours(t *testing.T) *BusinessHours   { return hoursAt(t, 10, 0, nil) }
func closedHours(t *testing.T) *BusinessHours { return hoursAt(t, 20, 0, nil) }

func holidayHours(t *testing.T, msg string) *BusinessHours {
	return hoursAt(t, 10, 0, []config.HolidayWindow{
		{From: "2026-01-07", To: "2026-01-07", Message: msg},
	})
}

func orderRec(portal, pedido, rastreio string) *models.OrderRecord {
	rec := &models.OrderRecord{
		ChaveNFe:          "35260112345678000199550010000000011000000019",
		MarketplacePedido: pedido,
		DataEmissao:       time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Transportadora:    "JADLOG",
		NumeroNF:          "123",
		Portal:            portal,
		Produtos:          []models.Produto{{DescricaoFiscal: "Furadeira 500W"}},
	}
	if rastreio != "" {
		rec.CodigoRastreio = &rastreio
	}
	return rec
}

func req(cmd, text string) Request {
	return Request{ContactID: "contact-1", SessionID: "sess-1", Command: cmd, Text: text}
}

func TestDispatch_MissingFields(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	for _, r := range []Request{
		{SessionID: "s", Command: "validaCpf", Text: "123"},
		{ContactID: "c", Text: "123"},
		{ContactID: "c", Command: "validaCpf", Text: "   "},
	} {
		res, err := d.Dispatch(context.Background(), r)
		require.ErrorIs(t, err, ErrBadRequest)
		require.Equal(t, FlagError, res.Flag)
		require.Equal(t, msgDadosObrigatorios, res.Message)
	}
	require.Empty(t, chat.Messages)
	require.Empty(t, chat.Signals)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("resetaSenha", "123"))
	require.ErrorIs(t, err, ErrBadRequest)
	require.Equal(t, FlagUnknownCommand, res.Flag)
	require.Empty(t, chat.Signals)
}

func TestDispatch_ValidaCpf_Invalido(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{err: orders.ErrDocumentoInvalido}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "111.111.111-11"))
	require.NoError(t, err)
	require.Equal(t, FlagCPFInvalido, res.Flag)
	require.Empty(t, chat.Messages)

	require.Len(t, chat.Signals, 1)
	require.Equal(t, "cpf_invalido", chat.Signals[0].Flag)
	require.Equal(t, "sess-1", chat.Signals[0].SessionID)
}

func TestDispatch_ValidaCpf_NaoEncontrado(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontrado, res.Flag)
	require.Equal(t, msgNenhumRegistro, res.Message)
	require.Len(t, chat.Signals, 1)
	require.Equal(t, "registro_nao_encontrado", chat.Signals[0].Flag)
}

func TestDispatch_ValidaCpf_EnviaRastreio(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{
		recs:     []*models.OrderRecord{orderRec(models.PortalCasasBahia, "551234", "AB123456789BR")},
		tracking: &models.TrackingInfo{CodigoRastreio: "AB123456789BR", Status: "SHIPPED", Descricao: "Em trânsito"},
	}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "  168.995.350-09  "))
	require.NoError(t, err)
	require.Equal(t, FlagRastreioEnviado, res.Flag)

	require.Equal(t, "168.995.350-09", fo.lastTerm)
	require.Equal(t, pgorders.KindDocumento, fo.lastKind)
	require.Equal(t, 1, fo.trackingCalls)

	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Text, "551234")
	require.Contains(t, chat.Messages[0].Text, "Em trânsito")
	require.Contains(t, chat.Messages[0].Text, trackingPortalBaseURL+"AB123456789BR")

	require.Len(t, chat.Signals, 1)
	require.Equal(t, "rastreio_enviado", chat.Signals[0].Flag)
}

func TestDispatch_RastreioPeloPedido_EnvviasPortal(t *testing.T) {
	chat := chatfake.New()
	rec := orderRec(models.PortalFidComexSite, "551234", "ENV987")
	rec.Transportadora = pgorders.CarrierEnvvias
	fo := &fakeOrders{recs: []*models.OrderRecord{rec}}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("rastreioPeloPedido", "551234"))
	require.NoError(t, err)
	require.Equal(t, FlagRastreioEnviado, res.Flag)
	require.Equal(t, pgorders.KindPedido, fo.lastKind)

	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Text, envviasPortalURL)
	require.NotContains(t, chat.Messages[0].Text, trackingPortalBaseURL)
}

func TestDispatch_RastreioPeloPedido_NaoEncontradoMeli(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("rastreioPeloPedido", "2000012345"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontradoMeli, res.Flag)
}

func TestDispatch_NfePeloPedido(t *testing.T) {
	chat := chatfake.New()
	rec := orderRec(models.PortalMagazineLuiza, "551234", "")
	fo := &fakeOrders{recs: []*models.OrderRecord{rec}}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("nfePeloPedido", "551234"))
	require.NoError(t, err)
	require.Equal(t, FlagNFeEnviada, res.Flag)

	require.Len(t, chat.Messages, 1)
	require.Contains(t, chat.Messages[0].Text, rec.ChaveNFe)
	require.Len(t, chat.Signals, 1)
	require.Equal(t, "nfe_enviada", chat.Signals[0].Flag)
}

func TestDispatch_EnviaNFECliente_SkipsTrigger(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalShopee, "551234", "")}}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("enviaNFECliente", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagNFeEnviada, res.Flag)
	require.Equal(t, pgorders.KindDocumento, fo.lastKind)

	require.Len(t, chat.Messages, 1)
	require.Empty(t, chat.Signals)
}

func TestDispatch_HandlerError(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{err: errors.New("db down")}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBadRequest)
	require.Equal(t, FlagError, res.Flag)
	require.Empty(t, chat.Signals)
}

func TestDispatch_HandlerPanicRecovered(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(panicOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "handler panic")
	require.Equal(t, FlagError, res.Flag)
	require.Empty(t, chat.Signals)
}

func TestDispatch_TriggerFailureReported(t *testing.T) {
	chat := chatfake.New()
	chat.TriggerErr = errors.New("orchestrator 502")
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontrado, res.Flag)
	require.Contains(t, res.TriggerError, "orchestrator 502")
}

func TestDispatch_TrocaPorPedido_RoutesBySchedule(t *testing.T) {
	cases := []struct {
		name    string
		hours   func(t *testing.T) *BusinessHours
		wantMsg string
	}{
		{"open", openHours, msgTransferindo},
		{"closed", closedHours, msgForaDeHorario},
		{"holiday", func(t *testing.T) *BusinessHours { return holidayHours(t, "Feriado municipal") }, "Feriado municipal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := chatfake.New()
			fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalCasasBahia, "551234", "")}}
			d := NewDispatcher(fo, chat, chat, tc.hours(t))

			res, err := d.Dispatch(context.Background(), req("validaPedidoParaTroca", "551234"))
			require.NoError(t, err)
			require.Equal(t, FlagEncaminhaTrocaSAC, res.Flag)

			// Order summary first, schedule message second.
			require.Len(t, chat.Messages, 2)
			require.Contains(t, chat.Messages[0].Text, "Pedido 551234")
			require.Contains(t, chat.Messages[0].Text, "Furadeira 500W")
			require.Equal(t, tc.wantMsg, chat.Messages[1].Text)
		})
	}
}

func TestDispatch_TrocaPorCpf_MercadoLivre(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalMercadoLivre, "987654", "")}}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpfParaTroca", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagEncaminhaTrocaMeli, res.Flag)
	require.Len(t, chat.Signals, 1)
	require.Equal(t, "encaminha_troca_meli", chat.Signals[0].Flag)
}

func TestDispatch_TrocaPorPedido_PrefixoMeli(t *testing.T) {
	chat := chatfake.New()
	fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalCasasBahia, "2000012345", "")}}
	d := NewDispatcher(fo, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaPedidoParaTroca", "2000012345"))
	require.NoError(t, err)
	require.Equal(t, FlagEncaminhaTrocaMeli, res.Flag)
}

func TestDispatch_TrocaNaoEncontrada(t *testing.T) {
	chat := chatfake.New()
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

	res, err := d.Dispatch(context.Background(), req("validaCpfParaTroca", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontradoTroca, res.Flag)

	res, err = d.Dispatch(context.Background(), req("validaPedidoParaTroca", "2000012345"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontradoMeli, res.Flag)
}

func TestDispatch_OutrosAssuntos_Email(t *testing.T) {
	t.Run("malformado", func(t *testing.T) {
		chat := chatfake.New()
		d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "cliente@"))
		require.NoError(t, err)
		require.Equal(t, FlagEmailInvalido, res.Flag)
	})

	t.Run("valido sem cadastro", func(t *testing.T) {
		chat := chatfake.New()
		fo := &fakeOrders{}
		d := NewDispatcher(fo, chat, chat, openHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "Cliente@Exemplo.com"))
		require.NoError(t, err)
		require.Equal(t, FlagEmailValido, res.Flag)
		require.Equal(t, "cliente@exemplo.com", fo.lastTerm)
		require.Equal(t, pgorders.KindEmail, fo.lastKind)
	})

	t.Run("encontrado em horario aberto", func(t *testing.T) {
		chat := chatfake.New()
		fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalFidComexSite, "551234", "")}}
		d := NewDispatcher(fo, chat, chat, openHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "cliente@exemplo.com"))
		require.NoError(t, err)
		require.Equal(t, FlagEmailEncontrado, res.Flag)
		require.Len(t, chat.Messages, 1)
		require.Equal(t, msgAtendenteLogo, chat.Messages[0].Text)
	})
}

func TestDispatch_OutrosAssuntos_Documento(t *testing.T) {
	t.Run("invalido", func(t *testing.T) {
		chat := chatfake.New()
		fo := &fakeOrders{err: orders.ErrDocumentoInvalido}
		d := NewDispatcher(fo, chat, chat, openHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "111.111.111-11"))
		require.NoError(t, err)
		require.Equal(t, FlagCPFInvalidoOutrosAssuntos, res.Flag)
	})

	t.Run("valido sem cadastro", func(t *testing.T) {
		chat := chatfake.New()
		d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "168.995.350-09"))
		require.NoError(t, err)
		require.Equal(t, FlagCPFValidoOutrosAssuntos, res.Flag)
	})

	t.Run("encontrado fora de horario", func(t *testing.T) {
		chat := chatfake.New()
		fo := &fakeOrders{recs: []*models.OrderRecord{orderRec(models.PortalFidComexSite, "551234", "")}}
		d := NewDispatcher(fo, chat, chat, closedHours(t))

		res, err := d.Dispatch(context.Background(), req("validaEmailOutrosAssuntos", "168.995.350-09"))
		require.NoError(t, err)
		require.Equal(t, FlagCPFEncontradoOutrosAssuntos, res.Flag)
		require.Len(t, chat.Messages, 1)
		require.Equal(t, msgForaDeHorario, chat.Messages[0].Text)
	})
}

func TestDispatch_PublishesConversationEvent(t *testing.T) {
	chat := chatfake.New()
	p := &fakeProducer{}
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t)).
		WithProducer(p, "conversation.handled")

	_, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.NoError(t, err)

	require.Equal(t, 1, p.calls)
	require.Equal(t, "conversation.handled", p.topic)
	require.Equal(t, []byte("contact-1"), p.key)

	var ev messages.ConversationHandled
	require.NoError(t, json.Unmarshal(p.value, &ev))
	require.Equal(t, "contact-1", ev.ContactID)
	require.Equal(t, "validaCpf", ev.Command)
	require.Equal(t, "registro_nao_encontrado", ev.Flag)
	require.False(t, ev.HandledAt.IsZero())
}

func TestDispatch_NoPublishOnGateFailure(t *testing.T) {
	chat := chatfake.New()
	p := &fakeProducer{}
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t)).
		WithProducer(p, "conversation.handled")

	_, err := d.Dispatch(context.Background(), Request{ContactID: "c"})
	require.ErrorIs(t, err, ErrBadRequest)
	require.Zero(t, p.calls)
}

func TestDispatch_ProducerFailureDoesNotAffectResult(t *testing.T) {
	chat := chatfake.New()
	p := &fakeProducer{err: errors.New("broker down")}
	d := NewDispatcher(&fakeOrders{}, chat, chat, openHours(t)).
		WithProducer(p, "conversation.handled")

	res, err := d.Dispatch(context.Background(), req("validaCpf", "168.995.350-09"))
	require.NoError(t, err)
	require.Equal(t, FlagRegistroNaoEncontrado, res.Flag)
}
