package engine

import (
	"context"

	"walletflow/internal/core"
	"walletflow/internal/log"
	"walletflow/internal/ports"
)

// write is one pending persistence call. Writes run one at a time in the
// order they were queued, each as a background task that reports back with
// a persisted command before the next one starts.
type write struct {
	op string
	fn func(ctx context.Context, p ports.Persistence) error
}

func (e *Engine) persist(op string, fn func(ctx context.Context, p ports.Persistence) error) {
	e.writes = append(e.writes, write{op: op, fn: fn})
	e.flush()
}

func (e *Engine) saveItems(items []core.WalletItem) {
	if len(items) == 0 {
		return
	}
	snapshot := append([]core.WalletItem(nil), items...)
	e.persist(log.OpSave, func(ctx context.Context, p ports.Persistence) error {
		return p.SaveItems(ctx, snapshot)
	})
}

func (e *Engine) flush() {
	if e.writing || len(e.writes) == 0 {
		return
	}
	w := e.writes[0]
	e.writes = e.writes[1:]
	e.writing = true
	p := e.persistence
	e.sched.Go(func(ctx context.Context) []Command {
		return []Command{persisted{op: w.op, err: w.fn(ctx, p)}}
	})
}

// written records a finished write. Failures are reported and the in-memory
// state stands.
func (e *Engine) written(ctx context.Context, c persisted) {
	e.writing = false
	if c.err != nil {
		e.writeErrors++
		e.fail(ctx, "Persistence write failed", c.err, c.op)
	}
	e.flush()
	if !e.writing && len(e.writes) == 0 {
		for _, ch := range e.writeWaiters {
			close(ch)
		}
		e.writeWaiters = nil
	}
}

func (e *Engine) awaitWrites(done chan struct{}) {
	if !e.writing && len(e.writes) == 0 {
		close(done)
		return
	}
	e.writeWaiters = append(e.writeWaiters, done)
}
