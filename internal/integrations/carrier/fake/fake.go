package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/fidcomex/sacbox/internal/models"
)

// FakeClient is a deterministic stand-in for the carrier API, used in local
// runs when no api key is configured. Status derives from the reference hash
// so a given reference always answers the same.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) GetShipment(ctx context.Context, codigoRastreio string) (*models.TrackingInfo, error) {
	now := time.Now().UTC()

	h := fnv.New32a()
	_, _ = h.Write([]byte(codigoRastreio))
	v := h.Sum32()

	status := "IN_TRANSIT"
	descricao := "Em trânsito"
	if v%5 == 0 {
		status = "DELIVERED"
		descricao = "Entregue"
	}

	return &models.TrackingInfo{
		CodigoRastreio: codigoRastreio,
		Status:         status,
		Descricao:      descricao,
		AtualizadoEm:   &now,
		Eventos: []models.TrackingEvent{
			{Descricao: descricao, Local: "Centro de distribuição", Data: &now},
		},
	}, nil
}
