package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// shutdownTimeout bounds how long draining may take once a signal arrives.
const shutdownTimeout = 15 * time.Second

type shutdownTask struct {
	name string
	fn   func(context.Context) error
}

// ShutdownManager drains the service's resources on SIGINT/SIGTERM. Tasks
// run in reverse registration order, so the HTTP server registered last
// stops taking requests before the Mongo and Redis connections close.
type ShutdownManager struct {
	cancelFunc context.CancelFunc
	mu         sync.Mutex
	tasks      []shutdownTask
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &ShutdownManager{cancelFunc: cancel}
}

// Register adds a named cleanup step.
func (sm *ShutdownManager) Register(name string, fn func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tasks = append(sm.tasks, shutdownTask{name: name, fn: fn})
}

// Shutdown runs every registered step, newest first. A failing step is
// logged and the drain continues; a stuck Mongo disconnect must not keep
// the Redis client open.
func (sm *ShutdownManager) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i := len(sm.tasks) - 1; i >= 0; i-- {
		task := sm.tasks[i]
		log.Printf("[SHUTDOWN] Closing %s...", task.name)
		if err := task.fn(ctx); err != nil {
			log.Printf("[SHUTDOWN] %s: %v", task.name, err)
		}
	}
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[SHUTDOWN] Received signal: %v", sig)
		sm.cancelFunc()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sm.Shutdown(ctx)

		log.Println("[SHUTDOWN] Graceful shutdown complete")
		os.Exit(0)
	}()
}
