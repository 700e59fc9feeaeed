package service

import (
	"strings"

	"github.com/SergeiKhy/linkpay/internal/config"
	"github.com/SergeiKhy/linkpay/internal/models"
)

// RevenueCalculator чистая функция расчёта стоимости клика.
// Не читает и не пишет внешнее состояние: повторный вызов с теми же
// входными данными возвращает ту же сумму, поэтому Session Mutator может
// безопасно пересчитывать выручку сколько угодно раз.
type RevenueCalculator struct {
	cfg config.RevenueConfig
}

func NewRevenueCalculator(cfg config.RevenueConfig) *RevenueCalculator {
	if cfg.UniqueVisitorRate == 0 {
		cfg = config.DefaultRevenueConfig
	}
	return &RevenueCalculator{cfg: cfg}
}

// Amount вычисляет полную (кумулятивную) стоимость клика по текущим
// показателям сессии. Порядок формулы:
//  1. неуникальный клик ничего не зарабатывает;
//  2. база = ставка уникального посетителя × множитель страны;
//  3. плюс рекламная выручка (показы и клики);
//  4. плюс бонус за длительность сессии, ограниченный потолком;
//  5. минус пропорциональная фрод-скидка: даже непомеченный клик
//     со score 40 получает лишь 60% номинала.
//
// Результат никогда не отрицателен.
func (c *RevenueCalculator) Amount(click *models.ClickEvent) models.Money {
	if !click.IsUnique {
		return 0
	}

	base := c.cfg.UniqueVisitorRate * int64(c.countryMultiplier(click.Country)) / 100

	adRevenue := click.Ad.Impressions*c.cfg.AdImpressionRate +
		click.Ad.Clicks*c.cfg.AdClickRate

	sessionBonus := int64(click.SessionDuration) * c.cfg.SessionRatePerSecond
	if sessionBonus > c.cfg.SessionBonusCap {
		sessionBonus = c.cfg.SessionBonusCap
	}

	raw := base + adRevenue + sessionBonus

	score := click.FraudScore
	if score > 100 {
		score = 100
	}
	if score > 0 {
		raw = raw * int64(100-score) / 100
	}

	if raw < 0 {
		raw = 0
	}

	return models.Money(raw)
}

// countryMultiplier множитель в процентах; страны вне таблицы и
// неопределённая геолокация получают множитель по умолчанию
func (c *RevenueCalculator) countryMultiplier(country string) int {
	if country == "" {
		return c.cfg.DefaultMultiplier
	}
	if pct, ok := c.cfg.CountryMultipliers[strings.ToUpper(country)]; ok {
		return pct
	}
	return c.cfg.DefaultMultiplier
}
