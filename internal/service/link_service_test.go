package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/service"
	"github.com/SergeiKhy/linkpay/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestService создаёт тестовое окружение с моковыми репозиториями
func setupTestService() (service.LinkService, *mocks.MockLinkRepository, *mocks.MockCacheRepository) {
	store := mocks.NewMockStore()
	linkRepo := mocks.NewMockLinkRepository(store)
	cacheRepo := mocks.NewMockCacheRepository()
	logger, _ := zap.NewDevelopment()
	linkService := service.NewLinkService(linkRepo, cacheRepo, logger)
	return linkService, linkRepo, cacheRepo
}

// validInput минимальный валидный вход для создания ссылки
func validInput(url string) *models.CreateLinkInput {
	return &models.CreateLinkInput{
		OriginalURL: url,
		PublisherID: 1,
	}
}

// TestLinkService_CreateLink_Success проверяет успешное создание ссылки
func TestLinkService_CreateLink_Success(t *testing.T) {
	linkService, _, _ := setupTestService()

	input := validInput("https://example.com/test")

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	require.NoError(t, err)
	assert.NotEmpty(t, link.ShortCode)
	assert.Equal(t, input.OriginalURL, link.OriginalURL)
	assert.Equal(t, int64(1), link.PublisherID)
	// Распределение по умолчанию: 70% паблишеру, 30% платформе
	assert.Equal(t, models.DefaultRevenueShare, link.Share)
	assert.True(t, link.AdEnabled)
	assert.NotNil(t, link.CreatedAt)
}

// TestLinkService_CreateLink_WithCustomCode проверяет создание ссылки с кастомным кодом
func TestLinkService_CreateLink_WithCustomCode(t *testing.T) {
	linkService, _, _ := setupTestService()

	customCode := "my-custom"
	input := validInput("https://example.com/test")
	input.CustomCode = &customCode

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, customCode, link.ShortCode)
}

// TestLinkService_CreateLink_WithExpiration проверяет создание ссылки с временем жизни
func TestLinkService_CreateLink_WithExpiration(t *testing.T) {
	linkService, _, _ := setupTestService()

	expiresIn := 60 // 60 минут
	input := validInput("https://example.com/test")
	input.ExpiresIn = &expiresIn

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	require.NoError(t, err)
	assert.NotNil(t, link.ExpiresAt)
	assert.True(t, link.ExpiresAt.After(time.Now()))
}

// TestLinkService_CreateLink_CustomShare проверяет создание ссылки
// с нестандартным распределением выручки
func TestLinkService_CreateLink_CustomShare(t *testing.T) {
	linkService, _, _ := setupTestService()

	input := validInput("https://example.com/test")
	input.Share = &models.RevenueShare{PublisherPercent: 85, PlatformPercent: 15}

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, 85, link.Share.PublisherPercent)
	assert.Equal(t, 15, link.Share.PlatformPercent)
}

// TestLinkService_CreateLink_InvalidShare проверяет отклонение долей,
// в сумме превышающих 100 или отрицательных
func TestLinkService_CreateLink_InvalidShare(t *testing.T) {
	invalidShares := []models.RevenueShare{
		{PublisherPercent: 80, PlatformPercent: 30},
		{PublisherPercent: -10, PlatformPercent: 50},
		{PublisherPercent: 110, PlatformPercent: 0},
	}

	for _, share := range invalidShares {
		linkService, _, _ := setupTestService()
		input := validInput("https://example.com/test")
		s := share
		input.Share = &s

		ctx := context.Background()
		link, err := linkService.CreateLink(ctx, input)

		assert.ErrorIs(t, err, service.ErrInvalidShare, "share=%+v", share)
		assert.Nil(t, link)
	}
}

// TestLinkService_CreateLink_NoPublisher проверяет отклонение ссылки без владельца
func TestLinkService_CreateLink_NoPublisher(t *testing.T) {
	linkService, _, _ := setupTestService()

	input := &models.CreateLinkInput{
		OriginalURL: "https://example.com/test",
	}

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	assert.ErrorIs(t, err, service.ErrNoPublisher)
	assert.Nil(t, link)
}

// TestLinkService_CreateLink_InvalidURL проверяет отклонение невалидного URL
func TestLinkService_CreateLink_InvalidURL(t *testing.T) {
	linkService, _, _ := setupTestService()

	input := validInput("not-a-valid-url")

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	assert.Error(t, err)
	assert.ErrorIs(t, err, service.ErrInvalidURL)
	assert.Nil(t, link)
}

// TestLinkService_CreateLink_SpamDomain проверяет блокировку спам-доменов
func TestLinkService_CreateLink_SpamDomain(t *testing.T) {
	linkService, _, _ := setupTestService()

	input := validInput("https://malware.com/bad-link")

	ctx := context.Background()
	link, err := linkService.CreateLink(ctx, input)

	assert.Error(t, err)
	assert.ErrorIs(t, err, service.ErrSpamDomain)
	assert.Nil(t, link)
}

// TestLinkService_CreateLink_InvalidCustomCode проверяет валидацию кастомного кода
func TestLinkService_CreateLink_InvalidCustomCode(t *testing.T) {
	linkService, _, _ := setupTestService()

	// Невалидные коды: слишком короткий, слишком длинный, с недопустимыми символами
	invalidCodes := []string{"ab", "toolongcustomcode123", "invalid@code"}

	for _, code := range invalidCodes {
		customCode := code
		input := validInput("https://example.com/test")
		input.CustomCode = &customCode

		ctx := context.Background()
		link, err := linkService.CreateLink(ctx, input)

		assert.Error(t, err)
		assert.ErrorIs(t, err, service.ErrInvalidCode)
		assert.Nil(t, link)
	}
}

// TestLinkService_GetLink_FromCache проверяет получение ссылки из кэша
func TestLinkService_GetLink_FromCache(t *testing.T) {
	linkService, _, cacheRepo := setupTestService()

	// Сначала создаём ссылку
	input := validInput("https://example.com/test")
	ctx := context.Background()
	createdLink, err := linkService.CreateLink(ctx, input)
	require.NoError(t, err)

	// Проверяем, что ссылка попала в кэш
	cachedLink, err := cacheRepo.Get(ctx, createdLink.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, createdLink.ShortCode, cachedLink.ShortCode)

	// Получаем ссылку (должна вернуться из кэша)
	retrievedLink, err := linkService.GetLink(ctx, createdLink.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, createdLink.ShortCode, retrievedLink.ShortCode)
	assert.Equal(t, createdLink.Share, retrievedLink.Share)
}

// TestLinkService_GetLink_NotFound проверяет обработку несуществующей ссылки
func TestLinkService_GetLink_NotFound(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	link, err := linkService.GetLink(ctx, "nonexistent")

	assert.Error(t, err)
	assert.Nil(t, link)
}

// TestLinkService_DeleteLink_Success проверяет успешное удаление ссылки
func TestLinkService_DeleteLink_Success(t *testing.T) {
	linkService, linkRepo, cacheRepo := setupTestService()

	// Создаём ссылку
	input := validInput("https://example.com/test")
	ctx := context.Background()
	createdLink, err := linkService.CreateLink(ctx, input)
	require.NoError(t, err)

	// Удаляем ссылку
	err = linkService.DeleteLink(ctx, createdLink.ShortCode)
	require.NoError(t, err)

	// Проверяем, что ссылка удалена из кэша
	_, err = cacheRepo.Get(ctx, createdLink.ShortCode)
	assert.Error(t, err)

	// Проверяем, что ссылка удалена из БД
	_, err = linkRepo.GetByShortCode(ctx, createdLink.ShortCode)
	assert.Error(t, err)
}

// TestLinkService_DeleteLink_NotFound проверяет удаление несуществующей ссылки
func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	err := linkService.DeleteLink(ctx, "nonexistent")

	assert.Error(t, err)
}

// TestLinkService_GenerateShortCode проверяет генерацию уникальных коротких кодов
func TestLinkService_GenerateShortCode(t *testing.T) {
	linkService, _, _ := setupTestService()

	// Генерируем множество кодов и проверяем их уникальность и длину
	codes := make(map[string]bool)
	for i := 0; i < 100; i++ {
		input := validInput(fmt.Sprintf("https://example.com/test%d", i))
		ctx := context.Background()
		link, err := linkService.CreateLink(ctx, input)
		require.NoError(t, err)
		assert.Len(t, link.ShortCode, 8, "Длина короткого кода должна быть 8 символов")
		assert.NotContains(t, codes, link.ShortCode, "Короткие коды должны быть уникальными")
		codes[link.ShortCode] = true
	}
}

// TestLinkService_ConcurrentAccess проверяет потокобезопасность при одновременном доступе
func TestLinkService_ConcurrentAccess(t *testing.T) {
	linkService, _, _ := setupTestService()

	ctx := context.Background()
	done := make(chan bool, 10)

	// Создаём ссылки параллельно в 10 горутинах
	for i := 0; i < 10; i++ {
		go func(id int) {
			input := validInput(fmt.Sprintf("https://example.com/test%d", id))
			link, err := linkService.CreateLink(ctx, input)
			assert.NoError(t, err)
			assert.NotNil(t, link)
			done <- true
		}(i)
	}

	// Ждём завершения всех горутин
	for i := 0; i < 10; i++ {
		<-done
	}
}
