package telegram

import (
	"fmt"

	"github.com/gotd/td/tgerr"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
)

// classify переводит ошибку gotd в классы ошибок транспорта.
// Ошибки RPC без особой обработки возвращаются как обычные, всё прочее
// (сеть, протокол) считается сбоем транспорта.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &transport.RateLimitError{Wait: d, Err: err}
	}
	if tgerr.Is(err, "USERNAME_OCCUPIED", "USERNAME_PURCHASE_AVAILABLE") {
		return fmt.Errorf("%s: %w: %v", op, transport.ErrNameOccupied, err)
	}
	if tgerr.Is(err, "CHAT_ADMIN_REQUIRED", "BROADCAST_REQUIRED") {
		return fmt.Errorf("%s: %w: %v", op, transport.ErrAdminRequired, err)
	}
	if _, ok := tgerr.As(err); ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &transport.Fault{Op: op, Err: err}
}
