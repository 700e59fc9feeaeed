package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/linkpay/internal/metrics"
	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClickService принимает клики: скоринг, разрешение уникальности,
// расчёт стоимости и первичное проведение по леджерам
type ClickService interface {
	RecordClick(ctx context.Context, shortCode string, in *models.ClickInput) (*models.ClickEvent, error)
	GetClick(ctx context.Context, clickID string) (*models.ClickEvent, error)
	GetLinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error)
	GetPublisherLedger(ctx context.Context, publisherID int64) (*models.PublisherLedger, error)
	GetPlatformLedger(ctx context.Context) (*models.PlatformLedger, error)
}

type clickService struct {
	links      LinkService
	clickRepo  repository.ClickRepository
	ledgerRepo repository.LedgerRepository
	ledger     *LedgerUpdater
	scorer     *FraudScorer
	calc       *RevenueCalculator
	geo        CountryResolver
	logger     *zap.Logger
}

func NewClickService(
	links LinkService,
	clickRepo repository.ClickRepository,
	ledgerRepo repository.LedgerRepository,
	ledger *LedgerUpdater,
	scorer *FraudScorer,
	calc *RevenueCalculator,
	geo CountryResolver,
	logger *zap.Logger,
) ClickService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if geo == nil {
		geo = NewNoopCountryResolver()
	}
	return &clickService{
		links:      links,
		clickRepo:  clickRepo,
		ledgerRepo: ledgerRepo,
		ledger:     ledger,
		scorer:     scorer,
		calc:       calc,
		geo:        geo,
		logger:     logger,
	}
}

// RecordClick обрабатывает входящий клик. Скоринг и уникальность
// вычисляются ровно один раз и больше не пересматриваются; выручка
// проводится только для уникального непомеченного клика. Ошибка
// проведения не отменяет сам клик — запись о посещении уже создана,
// учёт может отставать (перепроведение дельты выполнит heartbeat).
func (s *clickService) RecordClick(ctx context.Context, shortCode string, in *models.ClickInput) (*models.ClickEvent, error) {
	link, err := s.links.GetLink(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	score := s.scorer.Score(FraudSignals{
		UserAgent: in.UserAgent,
		Referer:   in.Referer,
		IPAddress: in.IPAddress,
	})

	country := in.Country
	if country == "" {
		// Best-effort: ошибка геолокации означает множитель по умолчанию
		if resolved, err := s.geo.Resolve(ctx, in.IPAddress); err == nil {
			country = resolved
		}
	}

	click := &models.ClickEvent{
		ID:          uuid.NewString(),
		LinkID:      link.ID,
		PublisherID: link.PublisherID,
		ShortCode:   link.ShortCode,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		Referer:     in.Referer,
		Country:     country,
		City:        in.City,
		Device:      in.Device,
		Browser:     in.Browser,
		OS:          in.OS,
		FraudScore:  score,
		IsFlagged:   s.scorer.Flagged(score),
		ClickedAt:   time.Now(),
	}

	if err := s.createWithRetry(ctx, click); err != nil {
		return nil, err
	}

	metrics.RecordClick(click.IsUnique, click.IsFlagged)

	if click.IsUnique && !click.IsFlagged {
		amount := s.calc.Amount(click)
		if amount > 0 {
			if err := s.ledger.Post(ctx, click, amount, link.Share); err != nil {
				s.logger.Error("Клик записан, но выручка не проведена",
					zap.String("click_id", click.ID),
					zap.String("short_code", link.ShortCode),
					zap.Error(err),
				)
			}
		}
	}

	return click, nil
}

// createWithRetry запись клика с повтором при транзиентных сбоях
func (s *clickService) createWithRetry(ctx context.Context, click *models.ClickEvent) error {
	var lastErr error
	for attempt := 0; attempt < ledgerMaxRetries; attempt++ {
		err := s.clickRepo.CreateClick(ctx, click)
		if err == nil {
			return nil
		}
		if err == repository.ErrLinkNotFound {
			return err
		}
		lastErr = err
		if attempt < ledgerMaxRetries-1 {
			s.logger.Debug("Повторная попытка записи клика",
				zap.String("click_id", click.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * ledgerRetryBackoff):
			}
		}
	}
	return lastErr
}

func (s *clickService) GetClick(ctx context.Context, clickID string) (*models.ClickEvent, error) {
	return s.clickRepo.GetByID(ctx, clickID)
}

func (s *clickService) GetLinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	return s.ledgerRepo.GetLinkStats(ctx, shortCode)
}

func (s *clickService) GetPublisherLedger(ctx context.Context, publisherID int64) (*models.PublisherLedger, error) {
	return s.ledgerRepo.GetPublisherLedger(ctx, publisherID)
}

func (s *clickService) GetPlatformLedger(ctx context.Context) (*models.PlatformLedger, error) {
	return s.ledgerRepo.GetPlatformLedger(ctx)
}
