package uploading

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper evicts stale temp files on a fixed interval.
type Sweeper struct {
	service  *Service
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewSweeper creates a sweeper. It does nothing until Start is called.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop.
func (s *Sweeper) Start() {
	slog.Info("Temp sweeper started", "interval", s.interval)
	s.started = true
	go s.run()
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.started {
			<-s.done
		}
		slog.Info("Temp sweeper stopped")
	})
}

func (s *Sweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.service.Sweep()
		case <-s.stopChan:
			return
		}
	}
}
