package service

import (
	"strings"

	"github.com/SergeiKhy/linkpay/internal/config"
)

// Баллы правил скоринга. Правила аддитивны, каждое срабатывает не более
// одного раза, порядок не имеет значения.
const (
	scoreMissingUserAgent = 20
	scoreMissingReferer   = 10
	scoreBotSignature     = 50
	scoreDatacenterIP     = 30

	maxFraudScore = 100
)

// FraudSignals сырые сигналы клика для скоринга
type FraudSignals struct {
	UserAgent string
	Referer   string
	IPAddress string
}

// FraudScorer чистая функция скоринга: никакого внешнего состояния,
// одинаковые сигналы всегда дают одинаковый балл
type FraudScorer struct {
	cfg config.FraudConfig
}

func NewFraudScorer(cfg config.FraudConfig) *FraudScorer {
	if cfg.FlagThreshold == 0 {
		cfg.FlagThreshold = config.DefaultFraudConfig.FlagThreshold
	}
	if len(cfg.BotSignatures) == 0 {
		cfg.BotSignatures = config.DefaultFraudConfig.BotSignatures
	}
	return &FraudScorer{cfg: cfg}
}

// Score возвращает балл подозрительности в диапазоне [0, 100].
// Сумма правил может превышать 100, итог обрезается.
func (s *FraudScorer) Score(signals FraudSignals) int {
	score := 0

	if signals.UserAgent == "" {
		score += scoreMissingUserAgent
	}

	if signals.Referer == "" {
		score += scoreMissingReferer
	}

	ua := strings.ToLower(signals.UserAgent)
	for _, sig := range s.cfg.BotSignatures {
		if strings.Contains(ua, sig) {
			score += scoreBotSignature
			break
		}
	}

	for _, prefix := range s.cfg.DatacenterPrefixes {
		if strings.HasPrefix(signals.IPAddress, prefix) {
			score += scoreDatacenterIP
			break
		}
	}

	if score > maxFraudScore {
		score = maxFraudScore
	}

	return score
}

// Flagged определяет вердикт: балл строго выше порога — клик помечен.
// Помеченный клик участвует в статистике трафика, но никогда не приносит
// выручку, в том числе при последующих обновлениях сессии.
func (s *FraudScorer) Flagged(score int) bool {
	return score > s.cfg.FlagThreshold
}
