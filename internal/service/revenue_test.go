package service_test

import (
	"testing"

	"github.com/SergeiKhy/linkpay/internal/config"
	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/service"
	"github.com/stretchr/testify/assert"
)

// uniqueClick базовый уникальный чистый клик для расчётов
func uniqueClick() *models.ClickEvent {
	return &models.ClickEvent{
		ID:       "click-1",
		LinkID:   1,
		IsUnique: true,
	}
}

// TestRevenueCalculator_Amount_NonUniqueEarnsNothing проверяет, что
// неуникальный клик не приносит выручку независимо от остальных показателей
func TestRevenueCalculator_Amount_NonUniqueEarnsNothing(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.IsUnique = false
	click.Country = "US"
	click.SessionDuration = 300
	click.Ad = models.AdInteractions{Impressions: 10, Clicks: 5}

	assert.Equal(t, models.Money(0), calc.Amount(click))
}

// TestRevenueCalculator_Amount_CountryMultipliers проверяет применение
// множителя страны к базовой ставке
func TestRevenueCalculator_Amount_CountryMultipliers(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	tests := []struct {
		country string
		want    models.Money
	}{
		{"US", 7_500},  // 5000 * 150%
		{"us", 7_500},  // код страны нечувствителен к регистру
		{"GB", 6_500},  // 5000 * 130%
		{"IN", 3_000},  // 5000 * 60%
		{"BR", 2_500},  // нет в таблице -> множитель по умолчанию 50%
		{"", 2_500},    // геолокация не определена
	}

	for _, tt := range tests {
		click := uniqueClick()
		click.Country = tt.country
		assert.Equal(t, tt.want, calc.Amount(click), "country=%q", tt.country)
	}
}

// TestRevenueCalculator_Amount_AdRevenue проверяет добавку за рекламу:
// показы и клики по рекламе оплачиваются по своим ставкам
func TestRevenueCalculator_Amount_AdRevenue(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.Ad = models.AdInteractions{Impressions: 3, Clicks: 1}

	// база 2500 + 3*1000 + 1*10000
	assert.Equal(t, models.Money(15_500), calc.Amount(click))
}

// TestRevenueCalculator_Amount_SessionBonusCapped проверяет бонус за
// длительность сессии и его потолок
func TestRevenueCalculator_Amount_SessionBonusCapped(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	short := uniqueClick()
	short.SessionDuration = 40
	// база 2500 + 40*100
	assert.Equal(t, models.Money(6_500), calc.Amount(short))

	long := uniqueClick()
	long.SessionDuration = 100_000
	// бонус упирается в потолок 20000, искусственно длинная сессия не помогает
	assert.Equal(t, models.Money(22_500), calc.Amount(long))
}

// TestRevenueCalculator_Amount_FraudDiscount проверяет пропорциональную
// фрод-скидку: клик со score 40 получает 60% номинала
func TestRevenueCalculator_Amount_FraudDiscount(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.Country = "US"
	click.FraudScore = 40

	// 7500 * 60%
	assert.Equal(t, models.Money(4_500), calc.Amount(click))
}

// TestRevenueCalculator_Amount_SuspiciousDatacenterClick проверяет расчёт
// для подозрительного, но не помеченного клика: пустые заголовки и адрес
// дата-центра из US дают 40% от 7500
func TestRevenueCalculator_Amount_SuspiciousDatacenterClick(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.Country = "US"
	click.FraudScore = 60

	assert.Equal(t, models.Money(3_000), calc.Amount(click))
}

// TestRevenueCalculator_Amount_MaxScoreEarnsNothing проверяет, что клик
// с максимальным баллом не приносит ничего, и результат не уходит в минус
func TestRevenueCalculator_Amount_MaxScoreEarnsNothing(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.Country = "US"
	click.FraudScore = 100
	click.SessionDuration = 60
	click.Ad = models.AdInteractions{Impressions: 2, Clicks: 1}

	assert.Equal(t, models.Money(0), calc.Amount(click))
}

// TestRevenueCalculator_Amount_Deterministic проверяет, что повторный расчёт
// с теми же показателями даёт ту же сумму (свойство, на котором построено
// доначисление дельты при обновлениях сессии)
func TestRevenueCalculator_Amount_Deterministic(t *testing.T) {
	calc := service.NewRevenueCalculator(config.DefaultRevenueConfig)

	click := uniqueClick()
	click.Country = "DE"
	click.FraudScore = 30
	click.SessionDuration = 120
	click.Ad = models.AdInteractions{Impressions: 5, Clicks: 2}

	first := calc.Amount(click)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calc.Amount(click))
	}
	assert.Greater(t, int64(first), int64(0))
}
