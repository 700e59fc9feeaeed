package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionLocker сериализует обновления сессии по id клика.
// Блокировка снижает конкуренцию между heartbeat-ами одной сессии;
// корректность при потере блокировки всё равно обеспечивает CAS на earned.
type SessionLocker interface {
	// Acquire пытается взять блокировку; возвращает функцию освобождения
	// и false, если блокировка уже занята
	Acquire(ctx context.Context, clickID string, ttl time.Duration) (release func(), ok bool, err error)
}

type sessionLocker struct {
	redis *RedisDB
}

func NewSessionLocker(redis *RedisDB) SessionLocker {
	return &sessionLocker{redis: redis}
}

func (l *sessionLocker) Acquire(ctx context.Context, clickID string, ttl time.Duration) (func(), bool, error) {
	key := "session_lock:" + clickID
	token := uuid.NewString()

	ok, err := l.redis.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Снимаем блокировку только если она всё ещё наша
		const script = `
			if redis.call("GET", KEYS[1]) == ARGV[1] then
				return redis.call("DEL", KEYS[1])
			end
			return 0
		`
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.redis.Client.Eval(ctx, script, []string{key}, token)
	}

	return release, true, nil
}
