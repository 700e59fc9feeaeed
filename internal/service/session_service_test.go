package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordCleanClick записывает уникальный чистый клик без геолокации
// (базовое начисление 2500)
func recordCleanClick(t *testing.T, env *clickTestEnv, ip string) *models.ClickEvent {
	t.Helper()
	link := env.createTestLink(t)
	click, err := env.clicks.RecordClick(context.Background(), link.ShortCode, cleanInput(ip))
	require.NoError(t, err)
	require.True(t, click.IsUnique)
	require.Equal(t, models.Money(2_500), click.Earned)
	return click
}

// TestSessionService_UpdateSession_CreditsDelta проверяет доначисление:
// обновление сессии с рекламой и длительностью проводит только положительную
// дельту, итоговый earned равен новой полной стоимости
func TestSessionService_UpdateSession_CreditsDelta(t *testing.T) {
	env := setupClickEnv()
	click := recordCleanClick(t, env, "203.0.113.5")
	ctx := context.Background()

	err := env.sessions.UpdateSession(ctx, click.ID, &models.SessionUpdateInput{
		SessionDuration: 40,
		PagesViewed:     3,
		AdImpressions:   3,
		AdClicks:        1,
	})
	require.NoError(t, err)

	// 2500 базы + 3*1000 показы + 1*10000 клик по рекламе + 40*100 сессия
	got, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(19_500), got.Earned)
	assert.Equal(t, 40, got.SessionDuration)
	assert.Equal(t, 3, got.PagesViewed)

	platform, err := env.clicks.GetPlatformLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Money(19_500), platform.TotalRevenue)
}

// TestSessionService_UpdateSession_IdempotentRepeat проверяет, что повторное
// идентичное обновление не проводит ничего: дельта от уже начисленного равна нулю
func TestSessionService_UpdateSession_IdempotentRepeat(t *testing.T) {
	env := setupClickEnv()
	click := recordCleanClick(t, env, "203.0.113.5")
	ctx := context.Background()

	update := &models.SessionUpdateInput{
		SessionDuration: 60,
		AdImpressions:   2,
	}

	require.NoError(t, env.sessions.UpdateSession(ctx, click.ID, update))

	first, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)

	require.NoError(t, env.sessions.UpdateSession(ctx, click.ID, update))

	second, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Earned, second.Earned)

	platform, err := env.clicks.GetPlatformLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Earned, platform.TotalRevenue)
}

// TestSessionService_UpdateSession_NoClawback проверяет асимметрию учёта:
// обновление с меньшими показателями не отзывает уже начисленное
func TestSessionService_UpdateSession_NoClawback(t *testing.T) {
	env := setupClickEnv()
	click := recordCleanClick(t, env, "203.0.113.5")
	ctx := context.Background()

	require.NoError(t, env.sessions.UpdateSession(ctx, click.ID, &models.SessionUpdateInput{
		SessionDuration: 120,
		AdImpressions:   5,
	}))

	peak, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)

	// Скорректированный отчёт с меньшими показателями
	require.NoError(t, env.sessions.UpdateSession(ctx, click.ID, &models.SessionUpdateInput{
		SessionDuration: 10,
	}))

	got, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)
	// Счётчики перезаписаны, но earned не уменьшился
	assert.Equal(t, 10, got.SessionDuration)
	assert.Equal(t, peak.Earned, got.Earned)
}

// TestSessionService_UpdateSession_FlaggedNeverCredited проверяет, что
// помеченный клик не монетизируется никакими последующими обновлениями
func TestSessionService_UpdateSession_FlaggedNeverCredited(t *testing.T) {
	env := setupClickEnv()
	link := env.createTestLink(t)
	ctx := context.Background()

	click, err := env.clicks.RecordClick(ctx, link.ShortCode, &models.ClickInput{
		IPAddress: "34.1.2.3",
		UserAgent: "Googlebot/2.1 (+http://www.google.com/bot.html)",
		Country:   "US",
	})
	require.NoError(t, err)
	require.True(t, click.IsFlagged)

	err = env.sessions.UpdateSession(ctx, click.ID, &models.SessionUpdateInput{
		SessionDuration: 300,
		AdImpressions:   100,
		AdClicks:        50,
	})
	require.NoError(t, err)

	got, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(0), got.Earned)
	// Сырые счётчики при этом обновлены
	assert.Equal(t, 300, got.SessionDuration)

	platform, err := env.clicks.GetPlatformLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Money(0), platform.TotalRevenue)
}

// TestSessionService_UpdateSession_NonUniqueNoop проверяет, что неуникальный
// клик получает обновление счётчиков, но не выручку
func TestSessionService_UpdateSession_NonUniqueNoop(t *testing.T) {
	env := setupClickEnv()
	link := env.createTestLink(t)
	ctx := context.Background()

	_, err := env.clicks.RecordClick(ctx, link.ShortCode, cleanInput("203.0.113.5"))
	require.NoError(t, err)

	dup, err := env.clicks.RecordClick(ctx, link.ShortCode, cleanInput("203.0.113.5"))
	require.NoError(t, err)
	require.False(t, dup.IsUnique)

	err = env.sessions.UpdateSession(ctx, dup.ID, &models.SessionUpdateInput{
		SessionDuration: 90,
		AdClicks:        2,
	})
	require.NoError(t, err)

	got, err := env.clicks.GetClick(ctx, dup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(0), got.Earned)
	assert.Equal(t, 90, got.SessionDuration)
}

// TestSessionService_UpdateSession_ClickNotFound проверяет обновление
// несуществующего клика
func TestSessionService_UpdateSession_ClickNotFound(t *testing.T) {
	env := setupClickEnv()

	err := env.sessions.UpdateSession(context.Background(), "missing-id", &models.SessionUpdateInput{
		SessionDuration: 10,
	})

	assert.ErrorIs(t, err, repository.ErrClickNotFound)
}

// TestSessionService_UpdateSession_ConcurrentHeartbeats проверяет, что
// конкурентные heartbeat с одинаковыми итогами не начисляют сумму дважды:
// проигравший CAS пересчитывает дельту от свежего earned и получает ноль
func TestSessionService_UpdateSession_ConcurrentHeartbeats(t *testing.T) {
	env := setupClickEnv()
	click := recordCleanClick(t, env, "203.0.113.5")
	ctx := context.Background()

	update := &models.SessionUpdateInput{
		SessionDuration: 40,
		AdImpressions:   3,
		AdClicks:        1,
	}

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.sessions.UpdateSession(ctx, click.ID, update))
		}()
	}
	wg.Wait()

	got, err := env.clicks.GetClick(ctx, click.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(19_500), got.Earned)

	// Сумма по леджерам сходится с earned клика
	platform, err := env.clicks.GetPlatformLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Money(19_500), platform.TotalRevenue)
}
