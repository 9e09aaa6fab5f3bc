package intelipost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fidcomex/sacbox/internal/integrations/carrier"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

var _ carrier.Client = (*Client)(nil)

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.intelipost.com.br"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type intelipostResp struct {
	Status  string `json:"status"`
	Content struct {
		OrderNumber string `json:"order_number"`
		Volumes     []struct {
			State          string `json:"shipment_order_volume_state"`
			StateLocalized string `json:"shipment_order_volume_state_localized"`
			History        []struct {
				State           string `json:"shipment_order_volume_state"`
				StateLocalized  string `json:"shipment_order_volume_state_localized"`
				ProviderMessage string `json:"provider_message"`
				EventDate       string `json:"event_date"`
				City            string `json:"city"`
			} `json:"shipment_order_volume_state_history_array"`
		} `json:"shipment_order_volume_array"`
	} `json:"content"`
}

func (c *Client) GetShipment(ctx context.Context, codigoRastreio string) (*models.TrackingInfo, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path = "/api/v1/shipment_order/" + url.PathEscape(codigoRastreio)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("intelipost http %d", resp.StatusCode)
	}

	var r intelipostResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if r.Status != "OK" {
		return nil, fmt.Errorf("intelipost status=%s", r.Status)
	}

	info := &models.TrackingInfo{CodigoRastreio: codigoRastreio}
	if len(r.Content.Volumes) == 0 {
		return info, nil
	}

	vol := r.Content.Volumes[0]
	info.Status = vol.State
	info.Descricao = vol.StateLocalized

	for _, h := range vol.History {
		ev := models.TrackingEvent{
			Descricao: h.StateLocalized,
			Local:     h.City,
		}
		if ev.Descricao == "" {
			ev.Descricao = h.ProviderMessage
		}
		if t, ok := parseEventDate(h.EventDate); ok {
			ev.Data = &t
			if info.AtualizadoEm == nil || t.After(*info.AtualizadoEm) {
				info.AtualizadoEm = &t
			}
		}
		info.Eventos = append(info.Eventos, ev)
	}

	return info, nil
}

// Intelipost sends ISO timestamps with and without fractional seconds.
func parseEventDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000-07:00",
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
