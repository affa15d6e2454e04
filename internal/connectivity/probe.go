package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Probe reports current connectivity and notifies on the transition to
// online. The signal is best-effort: a captive portal can make the probe
// report online while real traffic is blocked, and transition storms are
// not debounced. Consumers must tolerate repeated rapid notifications.
type Probe interface {
	IsOnline() bool
	// OnBecameOnline registers a callback invoked once per offline-to-online
	// transition. The returned function unregisters it.
	OnBecameOnline(cb func()) func()
}

// HTTPProbe determines connectivity by polling a reachability URL. Any HTTP
// response counts as online; only transport-level failures count as offline.
type HTTPProbe struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *logrus.Logger

	mu        sync.RWMutex
	online    bool
	callbacks map[int]func()
	nextID    int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewHTTPProbe creates a probe polling probeURL every interval.
func NewHTTPProbe(probeURL string, interval, timeout time.Duration, logger *logrus.Logger) *HTTPProbe {
	return &HTTPProbe{
		probeURL:  probeURL,
		interval:  interval,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		callbacks: make(map[int]func()),
	}
}

// Start begins the background polling process. The initial state is checked
// synchronously so IsOnline is meaningful as soon as Start returns.
func (p *HTTPProbe) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("connectivity probe is already running")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.mu.Unlock()

	p.check()

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.WithFields(logrus.Fields{
		"probeUrl": p.probeURL,
		"interval": p.interval,
	}).Info("Connectivity probe started")

	return nil
}

// Stop gracefully stops the polling process
func (p *HTTPProbe) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Connectivity probe stopped")
}

// IsOnline returns the result of the most recent reachability check.
func (p *HTTPProbe) IsOnline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

// OnBecameOnline registers cb for offline-to-online transitions.
func (p *HTTPProbe) OnBecameOnline(cb func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.callbacks[id] = cb

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.callbacks, id)
	}
}

func (p *HTTPProbe) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *HTTPProbe) check() {
	online := p.reachable()

	p.mu.Lock()
	wasOnline := p.online
	p.online = online
	var cbs []func()
	if online && !wasOnline {
		for _, cb := range p.callbacks {
			cbs = append(cbs, cb)
		}
	}
	p.mu.Unlock()

	if online != wasOnline {
		p.logger.WithField("online", online).Info("Connectivity state changed")
	}

	// Fire outside the lock so callbacks may call back into the probe.
	for _, cb := range cbs {
		cb()
	}
}

func (p *HTTPProbe) reachable() bool {
	req, err := http.NewRequestWithContext(p.ctx, http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return true
}
