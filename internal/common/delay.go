package common

import (
	"context"
	"math/rand"
	"time"
)

// WaitWithCancellation выполняет ожидание в случайном диапазоне секунд и
// регулярно проверяет контекст на отмену.
func WaitWithCancellation(ctx context.Context, delayRange [2]int) error {
	delay := rand.Intn(delayRange[1]-delayRange[0]+1) + delayRange[0]
	return Sleep(ctx, time.Duration(delay)*time.Second)
}

// Sleep ждёт d шагами не длиннее пяти секунд, чтобы вовремя заметить отмену.
func Sleep(ctx context.Context, d time.Duration) error {
	for remaining := d; remaining > 0; {
		step := 5 * time.Second
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
		remaining -= step
	}
	return nil
}

// SleepCapped ждёт d, но не дольше limit. Используется для ожидания
// по требованию провайдера (flood wait).
func SleepCapped(ctx context.Context, d, limit time.Duration) error {
	if limit > 0 && d > limit {
		d = limit
	}
	return Sleep(ctx, d)
}
