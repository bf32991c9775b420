package telegram

import (
	"context"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"
	"go.uber.org/ratelimit"
)

// pacedInvoker ограничивает частоту вызовов RPC одной сессии.
type pacedInvoker struct {
	next    tg.Invoker
	limiter ratelimit.Limiter
}

// paced оборачивает invoker ограничителем rps вызовов в секунду.
// При rps <= 0 ограничение не применяется.
func paced(next tg.Invoker, rps int) tg.Invoker {
	if rps <= 0 {
		return next
	}
	return &pacedInvoker{next: next, limiter: ratelimit.New(rps)}
}

func (p *pacedInvoker) Invoke(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.limiter.Take()
	return p.next.Invoke(ctx, input, output)
}
