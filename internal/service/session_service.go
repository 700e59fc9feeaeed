package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/linkpay/internal/metrics"
	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/repository"
	"go.uber.org/zap"
)

// sessionLockTTL блокировка живёт дольше одного проведения, но заметно
// меньше интервала heartbeat (~30 секунд)
const sessionLockTTL = 5 * time.Second

// SessionService принимает внеполосные обновления сессии (heartbeat
// и финальное закрытие), пересчитывает полную стоимость клика и проводит
// по леджерам только положительную дельту
type SessionService interface {
	UpdateSession(ctx context.Context, clickID string, in *models.SessionUpdateInput) error
}

type sessionService struct {
	clickRepo repository.ClickRepository
	linkRepo  repository.LinkRepository
	ledger    *LedgerUpdater
	calc      *RevenueCalculator
	locker    repository.SessionLocker
	logger    *zap.Logger
}

func NewSessionService(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	ledger *LedgerUpdater,
	calc *RevenueCalculator,
	locker repository.SessionLocker,
	logger *zap.Logger,
) SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionService{
		clickRepo: clickRepo,
		linkRepo:  linkRepo,
		ledger:    ledger,
		calc:      calc,
		locker:    locker,
		logger:    logger,
	}
}

// UpdateSession обновляет показатели сессии клика и доначисляет выручку.
// Значения входа — новые итоги, не приращения. Дельта считается от
// перечитанного earned и проводится через CAS, поэтому два конкурентных
// heartbeat не могут провести пересекающиеся суммы: проигравший получает
// ErrStaleEarned и повторяет расчёт от свежего значения. Redis-блокировка
// по id клика лишь снижает число таких конфликтов.
// Отрицательная дельта не проводится: ранее начисленная выручка не
// отзывается (задокументированная асимметрия модели учёта).
func (s *sessionService) UpdateSession(ctx context.Context, clickID string, in *models.SessionUpdateInput) error {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, clickID, sessionLockTTL)
		if err != nil {
			// Блокировка — оптимизация; при недоступном Redis полагаемся на CAS
			s.logger.Warn("Не удалось взять блокировку сессии", zap.Error(err))
		} else if ok {
			defer release()
		}
	}

	var lastErr error
	for attempt := 0; attempt < ledgerMaxRetries; attempt++ {
		err := s.applyUpdate(ctx, clickID, in)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrStaleEarned) {
			return err
		}

		// Конкурентный heartbeat успел провести свою дельту —
		// перечитываем earned и повторяем расчёт
		lastErr = err
		metrics.LedgerRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * ledgerRetryBackoff):
		}
	}

	return lastErr
}

func (s *sessionService) applyUpdate(ctx context.Context, clickID string, in *models.SessionUpdateInput) error {
	click, err := s.clickRepo.GetByID(ctx, clickID)
	if err != nil {
		return err
	}

	// Сырые счётчики пишем всегда — статистика трафика нужна
	// и для кликов, не участвующих в монетизации
	if err := s.clickRepo.UpdateSessionCounters(ctx, clickID, in); err != nil {
		return err
	}

	click.SessionDuration = in.SessionDuration
	click.PagesViewed = in.PagesViewed
	click.Ad.Impressions = in.AdImpressions
	click.Ad.Clicks = in.AdClicks

	if !click.IsUnique {
		metrics.RecordSessionUpdate("non_unique")
		return nil
	}

	if click.IsFlagged {
		// Помеченный клик не монетизируется никогда, какие бы сигналы
		// ни пришли позже
		metrics.RecordSessionUpdate("flagged")
		return nil
	}

	newTotal := s.calc.Amount(click)
	delta := newTotal - click.Earned
	if delta <= 0 {
		metrics.RecordSessionUpdate("no_delta")
		return nil
	}

	link, err := s.linkRepo.GetByID(ctx, click.LinkID)
	if err != nil {
		return err
	}

	if err := s.ledger.Post(ctx, click, delta, link.Share); err != nil {
		return err
	}

	metrics.RecordSessionUpdate("credited")
	return nil
}
