package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/jackc/pgx/v5"
)

var ErrClickNotFound = errors.New("click not found")

type ClickRepository interface {
	CreateClick(ctx context.Context, click *models.ClickEvent) error
	GetByID(ctx context.Context, id string) (*models.ClickEvent, error)
	UpdateSessionCounters(ctx context.Context, id string, in *models.SessionUpdateInput) error
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

// CreateClick записывает клик и разрешает уникальность атомарно.
// Проверка уникальности реализована условной вставкой в unique_visitors
// с первичным ключом (link_id, ip_address): два одновременных клика с одного
// адреса не могут оба получить is_unique = true — ON CONFLICT DO NOTHING
// сработает ровно один раз. Счётчики трафика (клики, уникальные посетители)
// инкрементируются в той же транзакции, поэтому fraud-клики тоже попадают
// в статистику, хотя выручку не приносят.
func (r *clickRepository) CreateClick(ctx context.Context, click *models.ClickEvent) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Условная вставка — единственный источник истины об уникальности
	tag, err := tx.Exec(ctx, `
		INSERT INTO unique_visitors (link_id, ip_address)
		VALUES ($1, $2)
		ON CONFLICT (link_id, ip_address) DO NOTHING
	`, click.LinkID, click.IPAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve uniqueness: %w", err)
	}
	click.IsUnique = tag.RowsAffected() == 1

	_, err = tx.Exec(ctx, `
		INSERT INTO clicks (
			id, link_id, publisher_id, ip_address, user_agent, referer,
			country, city, device, browser, os,
			is_unique, fraud_score, is_flagged,
			session_duration, pages_viewed, ad_impressions, ad_clicks,
			earned, clicked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		click.ID, click.LinkID, click.PublisherID, click.IPAddress, click.UserAgent, click.Referer,
		click.Country, click.City, click.Device, click.Browser, click.OS,
		click.IsUnique, click.FraudScore, click.IsFlagged,
		click.SessionDuration, click.PagesViewed, click.Ad.Impressions, click.Ad.Clicks,
		int64(click.Earned), click.ClickedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	uniqueInc := 0
	if click.IsUnique {
		uniqueInc = 1
	}

	// Счётчики трафика — атомарные инкременты, без чтения агрегата
	tag, err = tx.Exec(ctx, `
		UPDATE link_stats
		SET clicks = clicks + 1,
		    unique_visitors = unique_visitors + $2,
		    last_clicked_at = $3
		WHERE link_id = $1
	`, click.LinkID, uniqueInc, click.ClickedAt)
	if err != nil {
		return fmt.Errorf("failed to update link stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO publisher_ledgers (publisher_id, lifetime_clicks, lifetime_unique_visitors)
		VALUES ($1, 1, $2)
		ON CONFLICT (publisher_id) DO UPDATE
		SET lifetime_clicks = publisher_ledgers.lifetime_clicks + 1,
		    lifetime_unique_visitors = publisher_ledgers.lifetime_unique_visitors + $2
	`, click.PublisherID, uniqueInc)
	if err != nil {
		return fmt.Errorf("failed to update publisher counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}

	return nil
}

func (r *clickRepository) GetByID(ctx context.Context, id string) (*models.ClickEvent, error) {
	query := `
		SELECT c.id, c.link_id, c.publisher_id, l.short_code,
		       c.ip_address, c.user_agent, c.referer,
		       c.country, c.city, c.device, c.browser, c.os,
		       c.is_unique, c.fraud_score, c.is_flagged,
		       c.session_duration, c.pages_viewed, c.ad_impressions, c.ad_clicks,
		       c.earned, c.clicked_at
		FROM clicks c
		JOIN links l ON c.link_id = l.id
		WHERE c.id = $1
	`

	click := &models.ClickEvent{}
	var earned int64
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&click.ID, &click.LinkID, &click.PublisherID, &click.ShortCode,
		&click.IPAddress, &click.UserAgent, &click.Referer,
		&click.Country, &click.City, &click.Device, &click.Browser, &click.OS,
		&click.IsUnique, &click.FraudScore, &click.IsFlagged,
		&click.SessionDuration, &click.PagesViewed, &click.Ad.Impressions, &click.Ad.Clicks,
		&earned, &click.ClickedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClickNotFound
		}
		return nil, fmt.Errorf("failed to get click: %w", err)
	}

	click.Earned = models.Money(earned)
	return click, nil
}

// UpdateSessionCounters обновляет сырые счётчики сессии без пересчёта выручки
func (r *clickRepository) UpdateSessionCounters(ctx context.Context, id string, in *models.SessionUpdateInput) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE clicks
		SET session_duration = $2,
		    pages_viewed = $3,
		    ad_impressions = $4,
		    ad_clicks = $5
		WHERE id = $1
	`, id, in.SessionDuration, in.PagesViewed, in.AdImpressions, in.AdClicks)
	if err != nil {
		return fmt.Errorf("failed to update session counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClickNotFound
	}

	return nil
}
