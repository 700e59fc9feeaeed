package models

// PublisherLedger баланс аккаунта, владеющего ссылками.
// TotalEarnings только растёт; PendingBalance уменьшается при выплатах
// (выплаты выполняет внешний сервис, ядро их не проводит).
type PublisherLedger struct {
	PublisherID            int64 `json:"publisher_id"`
	TotalEarnings          Money `json:"total_earnings"`
	PendingBalance         Money `json:"pending_balance"`
	LifetimeClicks         int64 `json:"lifetime_clicks"`
	LifetimeUniqueVisitors int64 `json:"lifetime_unique_visitors"`
}

// PlatformLedger глобальный счёт платформы (одна строка)
type PlatformLedger struct {
	TotalRevenue     Money `json:"total_revenue"`
	PlatformShare    Money `json:"platform_share"`
	PublisherPayouts Money `json:"publisher_payouts"`
}
