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

// Константы политики повторов проведения
const (
	ledgerMaxRetries   = 3
	ledgerRetryBackoff = 100 * time.Millisecond
)

// LedgerUpdater проводит дельты выручки по леджерам. Разбиение дельты
// на доли считается от самой дельты и статичной конфигурации ссылки,
// а не от свежепрочитанного агрегата — агрегаты инкрементируются только
// атомарно на стороне хранилища.
type LedgerUpdater struct {
	repo   repository.LedgerRepository
	logger *zap.Logger
}

func NewLedgerUpdater(repo repository.LedgerRepository, logger *zap.Logger) *LedgerUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerUpdater{repo: repo, logger: logger}
}

// Post проводит неотрицательную дельту для клика. Повторяет попытку при
// транзиентных сбоях хранилища; бизнес-ошибки (ErrClickNotFound,
// ErrNegativeDelta, ErrStaleEarned) возвращаются сразу — решение о повторе
// с перечитанным earned принимает вызывающий. При успехе обновляет
// click.Earned в памяти.
func (u *LedgerUpdater) Post(ctx context.Context, click *models.ClickEvent, delta models.Money, share models.RevenueShare) error {
	if delta < 0 {
		return repository.ErrNegativeDelta
	}
	if delta == 0 {
		return nil
	}

	if !share.Valid() || share.PublisherPercent+share.PlatformPercent == 0 {
		share = models.DefaultRevenueShare
	}

	post := &repository.RevenuePost{
		ClickID:        click.ID,
		LinkID:         click.LinkID,
		PublisherID:    click.PublisherID,
		Delta:          delta,
		PublisherShare: delta.ApplyPercent(share.PublisherPercent),
		PlatformShare:  delta.ApplyPercent(share.PlatformPercent),
		ExpectedEarned: click.Earned,
	}

	var lastErr error
	for attempt := 0; attempt < ledgerMaxRetries; attempt++ {
		err := u.repo.PostRevenue(ctx, post)
		if err == nil {
			click.Earned += delta
			metrics.RecordRevenue(int64(delta))
			return nil
		}

		if errors.Is(err, repository.ErrClickNotFound) ||
			errors.Is(err, repository.ErrLinkNotFound) ||
			errors.Is(err, repository.ErrNegativeDelta) ||
			errors.Is(err, repository.ErrStaleEarned) {
			return err
		}

		lastErr = err
		u.logger.Warn("Повторная попытка проведения выручки",
			zap.String("click_id", click.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		metrics.LedgerRetriesTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * ledgerRetryBackoff):
		}
	}

	metrics.LedgerFailuresTotal.Inc()
	u.logger.Error("Не удалось провести выручку после всех попыток",
		zap.String("click_id", click.ID),
		zap.Error(lastErr),
	)
	return lastErr
}
