package models

import (
	"time"
)

// AdInteractions счётчики взаимодействий с рекламой на промежуточной странице
type AdInteractions struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// ClickEvent одно зафиксированное посещение короткой ссылки.
// Поля IsUnique, FraudScore и IsFlagged вычисляются один раз при создании
// и больше никогда не пересчитываются. Earned — накопленная сумма, уже
// проведённая по леджерам для этого клика (якорь сверки, защищает от
// двойного начисления).
type ClickEvent struct {
	ID          string `json:"id"`
	LinkID      int64  `json:"link_id"`
	PublisherID int64  `json:"publisher_id"`
	ShortCode   string `json:"short_code"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Device    string `json:"device"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`

	IsUnique   bool `json:"is_unique"`
	FraudScore int  `json:"fraud_score"`
	IsFlagged  bool `json:"is_flagged"`

	SessionDuration int            `json:"session_duration_seconds"`
	PagesViewed     int            `json:"pages_viewed"`
	Ad              AdInteractions `json:"ad_interactions"`

	Earned    Money     `json:"earned"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClickInput входные данные клика от редирект-сервиса
type ClickInput struct {
	IPAddress string `json:"ip_address" binding:"required"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Device    string `json:"device"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
}

// SessionUpdateInput обновление сессии для уже записанного клика.
// Все значения — новые итоговые показатели, а не приращения.
type SessionUpdateInput struct {
	SessionDuration int   `json:"session_duration_seconds"`
	PagesViewed     int   `json:"pages_viewed"`
	AdImpressions   int64 `json:"ad_impressions"`
	AdClicks        int64 `json:"ad_clicks"`
}
