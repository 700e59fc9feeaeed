package models

import (
	"time"
)

// RevenueShare доли распределения выручки между паблишером и платформой.
// Доли задаются в целых процентах и в сумме не превышают 100.
type RevenueShare struct {
	PublisherPercent int `json:"publisher_percent"`
	PlatformPercent  int `json:"platform_percent"`
}

// DefaultRevenueShare распределение по умолчанию: 70% паблишеру, 30% платформе
var DefaultRevenueShare = RevenueShare{PublisherPercent: 70, PlatformPercent: 30}

// Valid проверяет корректность долей
func (rs RevenueShare) Valid() bool {
	return rs.PublisherPercent >= 0 && rs.PlatformPercent >= 0 &&
		rs.PublisherPercent+rs.PlatformPercent <= 100
}

type Link struct {
	ID          int64        `json:"id"`
	ShortCode   string       `json:"short_code"`
	OriginalURL string       `json:"original_url"`
	PublisherID int64        `json:"publisher_id"`
	Share       RevenueShare `json:"revenue_share"`
	AdEnabled   bool         `json:"ad_enabled"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type CreateLinkInput struct {
	OriginalURL string        `json:"original_url" binding:"required,url"`
	PublisherID int64         `json:"publisher_id" binding:"required"`
	Share       *RevenueShare `json:"revenue_share,omitempty"`
	AdEnabled   *bool         `json:"ad_enabled,omitempty"`
	ExpiresIn   *int          `json:"expires_in,omitempty"`
	CustomCode  *string       `json:"custom_code,omitempty"`
}

// LinkStats агрегат по ссылке: трафик и накопленная выручка
type LinkStats struct {
	LinkID         int64      `json:"link_id"`
	ShortCode      string     `json:"short_code"`
	Clicks         int64      `json:"clicks"`
	UniqueVisitors int64      `json:"unique_visitors"`
	Earnings       Money      `json:"earnings"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
}
