package lifecycle

import (
	"context"
	"time"
)

// Handle 是 Manager 交给每个后台任务的句柄
type Handle struct {
	name string
	ctx  context.Context
}

// Name 返回任务名
func (h *Handle) Name() string {
	return h.name
}

// Ctx 返回随停机取消的上下文
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done 在停机开始时关闭
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Every 每隔 interval 调用一次 fn，直到停机。首次调用发生在一个间隔之后
func (h *Handle) Every(interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			fn(h.ctx)
		}
	}
}
