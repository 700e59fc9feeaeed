package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/linkpay/internal/metrics"
	"github.com/SergeiKhy/linkpay/internal/models"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	processTimeout       = 5 * time.Second
)

// EdgeClick событие клика с редирект-границы
type EdgeClick struct {
	ShortCode string
	Input     models.ClickInput
}

// ClickProcessor асинхронный приём кликов с редиректа. Редирект-ответ
// пользователю не ждёт скоринга и проведения по леджерам: событие уходит
// в очередь, воркеры обрабатывают его через ClickService. При переполнении
// очереди событие теряется — учёт может отставать, редирект не блокируется.
type ClickProcessor interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, event *EdgeClick) error
}

// clickProcessor реализация с worker pool поверх буферизованного канала
type clickProcessor struct {
	clicks      ClickService
	logger      *zap.Logger
	queue       chan *EdgeClick
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(clicks ClickService, workerCount, bufferSize int, logger *zap.Logger) ClickProcessor {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if bufferSize <= 0 {
		bufferSize = defaultChannelBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickProcessor{
		clicks:      clicks,
		logger:      logger,
		queue:       make(chan *EdgeClick, bufferSize),
		workerCount: workerCount,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает worker pool
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
			return

		case event, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.ClickQueueDepth.Set(float64(len(p.queue)))
			p.process(event)
		}
	}
}

// process обрабатывает одно событие; ошибки учёта только логгируются —
// пользовательский редирект уже состоялся
func (p *clickProcessor) process(event *EdgeClick) {
	ctx, cancel := context.WithTimeout(p.ctx, processTimeout)
	defer cancel()

	if _, err := p.clicks.RecordClick(ctx, event.ShortCode, &event.Input); err != nil {
		p.logger.Error("Не удалось записать клик с редиректа",
			zap.String("short_code", event.ShortCode),
			zap.Error(err),
		)
	}
}

// Enqueue отправляет событие клика в worker pool (неблокирующая операция)
func (p *clickProcessor) Enqueue(ctx context.Context, event *EdgeClick) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- event:
		metrics.ClickQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		// Канал заполнен: предупреждаем, но не блокируем редирект
		metrics.ClickQueueDroppedTotal.Inc()
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("short_code", event.ShortCode),
		)
		return nil
	}
}
