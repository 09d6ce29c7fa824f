package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"docintake/internal/logger"
)

// Mux routes dequeued tasks to their handlers. Each handler invocation owns
// its job exclusively until it returns.
type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

func NewMux() *Mux {
	m := &Mux{mux: asynq.NewServeMux(), log: logger.New("Worker")}
	m.mux.Use(m.timed)
	return m
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) timed(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		if err != nil {
			m.log.LogErrorf("task %s failed after %v: %v", task.Type(), time.Since(start), err)
			return err
		}
		m.log.LogDebugf("task %s finished in %v", task.Type(), time.Since(start))
		return nil
	})
}
