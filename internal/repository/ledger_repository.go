package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrNegativeDelta леджер принимает только неотрицательные корректировки
	ErrNegativeDelta = errors.New("negative revenue delta")
	// ErrStaleEarned накопленная сумма клика изменилась между чтением и записью —
	// конкурентный heartbeat уже провёл свою дельту, вызывающий должен повторить
	ErrStaleEarned = errors.New("stale earned value")
)

// RevenuePost дельта выручки для атомарного проведения по всем леджерам
type RevenuePost struct {
	ClickID     string
	LinkID      int64
	PublisherID int64

	Delta          models.Money
	PublisherShare models.Money
	PlatformShare  models.Money

	// ExpectedEarned значение clicks.earned, прочитанное перед расчётом дельты.
	// Используется как compare-and-swap: если к моменту записи оно изменилось,
	// проведение отклоняется с ErrStaleEarned.
	ExpectedEarned models.Money
}

type LedgerRepository interface {
	PostRevenue(ctx context.Context, post *RevenuePost) error
	GetLinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error)
	GetPublisherLedger(ctx context.Context, publisherID int64) (*models.PublisherLedger, error)
	GetPlatformLedger(ctx context.Context) (*models.PlatformLedger, error)
}

type ledgerRepository struct {
	db *PostgresDB
}

func NewLedgerRepository(db *PostgresDB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// PostRevenue проводит дельту по четырём сущностям в одной транзакции:
// клик (CAS на earned), агрегат ссылки, баланс паблишера, счёт платформы.
// Все инкременты выполняются на стороне БД (SET x = x + delta), поэтому
// параллельные проведения по одному агрегату не теряют приращений.
// Транзакция гарантирует «всё или ничего» и при отмене контекста.
func (r *ledgerRepository) PostRevenue(ctx context.Context, post *RevenuePost) error {
	if post.Delta < 0 {
		return ErrNegativeDelta
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// CAS: проведение допустимо только от того значения earned,
	// от которого считалась дельта
	tag, err := tx.Exec(ctx, `
		UPDATE clicks
		SET earned = earned + $2
		WHERE id = $1 AND earned = $3
	`, post.ClickID, int64(post.Delta), int64(post.ExpectedEarned))
	if err != nil {
		return fmt.Errorf("failed to update click earnings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо клика нет, либо earned успел измениться
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM clicks WHERE id = $1)`, post.ClickID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check click: %w", err)
		}
		if !exists {
			return ErrClickNotFound
		}
		return ErrStaleEarned
	}

	tag, err = tx.Exec(ctx, `
		UPDATE link_stats
		SET earnings = earnings + $2
		WHERE link_id = $1
	`, post.LinkID, int64(post.Delta))
	if err != nil {
		return fmt.Errorf("failed to update link earnings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO publisher_ledgers (publisher_id, total_earnings, pending_balance)
		VALUES ($1, $2, $2)
		ON CONFLICT (publisher_id) DO UPDATE
		SET total_earnings = publisher_ledgers.total_earnings + $2,
		    pending_balance = publisher_ledgers.pending_balance + $2
	`, post.PublisherID, int64(post.PublisherShare))
	if err != nil {
		return fmt.Errorf("failed to update publisher ledger: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE platform_ledger
		SET total_revenue = total_revenue + $1,
		    platform_share = platform_share + $2,
		    publisher_payouts = publisher_payouts + $3
		WHERE id = 1
	`, int64(post.Delta), int64(post.PlatformShare), int64(post.PublisherShare))
	if err != nil {
		return fmt.Errorf("failed to update platform ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit revenue post: %w", err)
	}

	return nil
}

func (r *ledgerRepository) GetLinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	query := `
		SELECT s.link_id, l.short_code, s.clicks, s.unique_visitors, s.earnings, s.last_clicked_at
		FROM link_stats s
		JOIN links l ON s.link_id = l.id
		WHERE l.short_code = $1
	`

	stats := &models.LinkStats{}
	var earnings int64
	err := r.db.Pool.QueryRow(ctx, query, shortCode).Scan(
		&stats.LinkID,
		&stats.ShortCode,
		&stats.Clicks,
		&stats.UniqueVisitors,
		&earnings,
		&stats.LastClickedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link stats: %w", err)
	}

	stats.Earnings = models.Money(earnings)
	return stats, nil
}

func (r *ledgerRepository) GetPublisherLedger(ctx context.Context, publisherID int64) (*models.PublisherLedger, error) {
	query := `
		SELECT publisher_id, total_earnings, pending_balance, lifetime_clicks, lifetime_unique_visitors
		FROM publisher_ledgers
		WHERE publisher_id = $1
	`

	ledger := &models.PublisherLedger{}
	var total, pending int64
	err := r.db.Pool.QueryRow(ctx, query, publisherID).Scan(
		&ledger.PublisherID,
		&total,
		&pending,
		&ledger.LifetimeClicks,
		&ledger.LifetimeUniqueVisitors,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Паблишер без трафика — пустой леджер, не ошибка
			return &models.PublisherLedger{PublisherID: publisherID}, nil
		}
		return nil, fmt.Errorf("failed to get publisher ledger: %w", err)
	}

	ledger.TotalEarnings = models.Money(total)
	ledger.PendingBalance = models.Money(pending)
	return ledger, nil
}

func (r *ledgerRepository) GetPlatformLedger(ctx context.Context) (*models.PlatformLedger, error) {
	query := `
		SELECT total_revenue, platform_share, publisher_payouts
		FROM platform_ledger
		WHERE id = 1
	`

	ledger := &models.PlatformLedger{}
	var revenue, share, payouts int64
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&revenue, &share, &payouts); err != nil {
		return nil, fmt.Errorf("failed to get platform ledger: %w", err)
	}

	ledger.TotalRevenue = models.Money(revenue)
	ledger.PlatformShare = models.Money(share)
	ledger.PublisherPayouts = models.Money(payouts)
	return ledger, nil
}
