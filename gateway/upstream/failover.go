package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// FailoverConfig controls failover behavior
type FailoverConfig struct {
	// HealthCheckInterval is how often to check if the primary endpoint is back up
	HealthCheckInterval time.Duration
	// HealthPath is requested on an endpoint to decide whether it is up
	HealthPath string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// DefaultFailoverConfig returns sensible defaults for failover behavior
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		HealthCheckInterval: 30 * time.Second,
		HealthPath:          "/health",
		Timeout:             10 * time.Second,
	}
}

// endpoints keeps a primary base URL and backups. Requests go to the
// current endpoint; on network or 5xx errors the next healthy one takes
// over and a background checker restores the primary once it recovers.
type endpoints struct {
	name       string
	httpClient *http.Client
	primaryURL string
	backupURLs []string
	currentURL string
	mu         sync.RWMutex
	config     FailoverConfig
	stopCh     chan struct{}
	stoppedCh  chan struct{}
	stopOnce   sync.Once
}

func newEndpoints(name string, urls []string, client *http.Client, config FailoverConfig) *endpoints {
	valid := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, err := url.Parse(u); err != nil || u == "" {
			log.Warn().Err(err).Str("url", u).Msg("Invalid endpoint URL, skipping")
			continue
		}
		valid = append(valid, strings.TrimSuffix(u, "/"))
	}

	e := &endpoints{
		name:       name,
		httpClient: client,
		config:     config,
	}
	if len(valid) > 0 {
		e.primaryURL = valid[0]
		e.currentURL = valid[0]
		e.backupURLs = valid[1:]
	}

	// Start health checker if we have backup URLs
	if len(e.backupURLs) > 0 && config.HealthCheckInterval > 0 {
		e.stopCh = make(chan struct{})
		e.stoppedCh = make(chan struct{})
		go e.healthLoop()
	}

	log.Info().
		Str("upstream", name).
		Str("primary", e.primaryURL).
		Int("backups", len(e.backupURLs)).
		Msg("Upstream client initialized")
	return e
}

func (e *endpoints) healthLoop() {
	defer close(e.stoppedCh)
	ticker := time.NewTicker(e.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.checkAndRestore()
		}
	}
}

// checkAndRestore checks if the primary endpoint is healthy and restores it if so
func (e *endpoints) checkAndRestore() {
	if e.current() == e.primaryURL {
		return
	}
	if e.isHealthy(e.primaryURL) {
		e.mu.Lock()
		e.currentURL = e.primaryURL
		e.mu.Unlock()
		log.Info().Str("upstream", e.name).Str("url", e.primaryURL).Msg("Restored primary endpoint")
	}
}

// isHealthy reports whether an endpoint answers without a server error
func (e *endpoints) isHealthy(endpoint string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+e.config.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", endpoint).Msg("Health check failed")
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode < 500
}

func (e *endpoints) current() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentURL
}

// failover switches to the next healthy endpoint
func (e *endpoints) failover() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	all := append([]string{e.primaryURL}, e.backupURLs...)
	currentIdx := 0
	for i, u := range all {
		if u == e.currentURL {
			currentIdx = i
			break
		}
	}

	for i := 1; i < len(all); i++ {
		next := all[(currentIdx+i)%len(all)]
		if e.isHealthy(next) {
			e.currentURL = next
			FailoversTotal.WithLabelValues(e.name).Inc()
			log.Info().Str("upstream", e.name).Str("url", next).Msg("Failover to endpoint")
			return true
		}
	}

	log.Warn().Str("upstream", e.name).Str("url", e.currentURL).Msg("All endpoints unhealthy, staying on current")
	return false
}

// get requests path on the current endpoint, failing over once on errors
// another endpoint could fix
func (e *endpoints) get(ctx context.Context, path, apiKey string, out any) error {
	err := getJSON(ctx, e.httpClient, e.name, e.current()+path, apiKey, out)
	if err == nil || !retriable(err) || len(e.backupURLs) == 0 {
		return err
	}

	log.Warn().Err(err).Str("upstream", e.name).Str("path", path).Msg("Request failed, trying failover")
	if !e.failover() {
		return err
	}
	return getJSON(ctx, e.httpClient, e.name, e.current()+path, apiKey, out)
}

// Close stops the health checker
func (e *endpoints) Close() {
	if e.stopCh == nil {
		return
	}
	e.stopOnce.Do(func() {
		close(e.stopCh)
		<-e.stoppedCh
	})
}
