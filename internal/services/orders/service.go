package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fidcomex/sacbox/internal/cache"
	"github.com/fidcomex/sacbox/internal/document"
	"github.com/fidcomex/sacbox/internal/integrations/carrier"
	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
	"github.com/pkg/errors"
)

// ErrDocumentoInvalido marks a document that failed checksum validation. The
// store is never queried in that case.
var ErrDocumentoInvalido = errors.New("documento inválido")

type Repository interface {
	SearchOrders(ctx context.Context, term string, kind pgorders.SearchKind) ([]models.OrderRow, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Service struct {
	repo    Repository
	carrier carrier.Client
	cache   cache.BytesCache

	trackingTTL time.Duration
	concurrency int

	rl       RateLimiter
	rlPerMin int64
}

func New(repo Repository, c carrier.Client, bc cache.BytesCache, trackingTTL time.Duration) *Service {
	return &Service{
		repo:        repo,
		carrier:     c,
		cache:       bc,
		trackingTTL: trackingTTL,
		concurrency: 10,
	}
}

func (s *Service) WithRateLimiter(rl RateLimiter, perMinute int64) *Service {
	if rl != nil && perMinute > 0 {
		s.rl = rl
		s.rlPerMin = perMinute
	}
	return s
}

// InferKind guesses what the caller typed: an address with "@" is an email,
// an 11- or 14-digit value is a CPF/CNPJ, anything else a marketplace order
// code.
func InferKind(term string) pgorders.SearchKind {
	if strings.Contains(term, "@") {
		return pgorders.KindEmail
	}
	switch len(document.Digits(term)) {
	case 11, 14:
		return pgorders.KindDocumento
	default:
		return pgorders.KindPedido
	}
}

// Search fetches and groups order records for one identifier. For documents
// the term is checksum-validated and normalized before it becomes a query
// parameter; ErrDocumentoInvalido comes back without a store round trip.
// Records keep the storage order: issue date descending.
func (s *Service) Search(ctx context.Context, term string, kind pgorders.SearchKind) ([]*models.OrderRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("term is empty")
	}

	if kind == pgorders.KindDocumento {
		if !document.IsValid(term) {
			return nil, ErrDocumentoInvalido
		}
		term = document.Normalize(term)
	}

	rows, err := s.repo.SearchOrders(ctx, term, kind)
	if err != nil {
		return nil, err
	}

	return groupRows(rows), nil
}

// groupRows folds item rows into one OrderRecord per invoice key. All
// non-product fields are invariant across rows sharing a key, so they come
// from the first row seen.
func groupRows(rows []models.OrderRow) []*models.OrderRecord {
	var out []*models.OrderRecord
	byChave := make(map[string]*models.OrderRecord, len(rows))

	for _, r := range rows {
		rec, ok := byChave[r.ChaveNFe]
		if !ok {
			rec = &models.OrderRecord{
				ChaveNFe:          r.ChaveNFe,
				MarketplacePedido: r.MarketplacePedido,
				DataEmissao:       r.DataEmissao,
				Transportadora:    r.Transportadora,
				NumeroNF:          r.NumeroNF,
				CodigoRastreio:    r.CodigoRastreio,
				Portal:            CanonicalPortal(r.Parceiro),
				ClienteNome:       r.ClienteNome,
				ClienteEmail:      r.ClienteEmail,
			}
			if r.UltimoEvento != nil {
				rec.UltimoEvento = *r.UltimoEvento
			}
			byChave[r.ChaveNFe] = rec
			out = append(out, rec)
		}
		rec.Produtos = append(rec.Produtos, models.Produto{
			DescricaoFiscal: r.DescricaoFiscal,
			Imagem:          r.Imagem,
		})
	}

	return out
}

// WithTracking decorates records with live carrier status, fanning the
// lookups out concurrently. Any failed or missing lookup leaves TrackingInfo
// nil; the batch never fails. Results are matched back by tracking reference,
// not by position.
func (s *Service) WithTracking(ctx context.Context, records []*models.OrderRecord) []*models.OrderRecord {
	refs := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.CodigoRastreio != nil && *rec.CodigoRastreio != "" {
			refs[*rec.CodigoRastreio] = struct{}{}
		}
	}
	if len(refs) == 0 {
		return records
	}

	var mu sync.Mutex
	byRef := make(map[string]*models.TrackingInfo, len(refs))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for ref := range refs {
		sem <- struct{}{}
		wg.Add(1)
		go func(ref string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			info := s.fetchTracking(ctx, ref)
			if info == nil {
				return
			}
			mu.Lock()
			byRef[ref] = info
			mu.Unlock()
		}(ref)
	}
	wg.Wait()

	for _, rec := range records {
		if rec.CodigoRastreio != nil {
			rec.TrackingInfo = byRef[*rec.CodigoRastreio]
		}
	}
	return records
}

// fetchTracking is best effort: cache first, then the carrier behind the
// rate limiter. Failures are logged and degrade to nil.
func (s *Service) fetchTracking(ctx context.Context, ref string) *models.TrackingInfo {
	if s.cache != nil && s.trackingTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, trackingKey(ref)); err == nil && ok {
			var info models.TrackingInfo
			if json.Unmarshal(b, &info) == nil {
				return &info
			}
		}
	}

	if s.rl != nil {
		minuteKey := fmt.Sprintf("rl:carrier:%s", time.Now().UTC().Format("200601021504"))
		allowed, n, err := s.rl.Allow(ctx, minuteKey, s.rlPerMin, 70*time.Second)
		if err == nil && !allowed {
			slog.Warn("carrier rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	info, err := s.carrier.GetShipment(ctx, ref)
	if err != nil {
		slog.Warn("fetch tracking", "codigo_rastreio", ref, "error", err.Error())
		return nil
	}

	if s.cache != nil && s.trackingTTL > 0 && info != nil {
		b, _ := json.Marshal(info)
		_ = s.cache.Set(ctx, trackingKey(ref), b, s.trackingTTL)
	}
	return info
}

func trackingKey(ref string) string {
	return fmt.Sprintf("tracking:%s:current", ref)
}
