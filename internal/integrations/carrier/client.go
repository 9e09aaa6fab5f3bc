package carrier

import (
	"context"

	"github.com/fidcomex/sacbox/internal/models"
)

// Client fetches live shipment status for one tracking reference.
type Client interface {
	GetShipment(ctx context.Context, codigoRastreio string) (*models.TrackingInfo, error)
}
