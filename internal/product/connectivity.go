package product

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Checker reports whether the remote catalog is reachable.
type Checker interface {
	Online(ctx context.Context) bool
}

// Static is a Checker with a fixed answer.
type Static bool

// Online returns the fixed answer.
func (s Static) Online(context.Context) bool {
	return bool(s)
}

// HTTPCheckerConfig controls HTTPChecker.
type HTTPCheckerConfig struct {
	URL     string
	Timeout time.Duration
	// TTL is how long a probe result is reused.
	TTL    time.Duration
	Client *http.Client
	Logger *zap.Logger
	Now    func() time.Time
}

// HTTPChecker probes a URL with a HEAD request. Any HTTP response counts as
// online; transport failures count as offline.
type HTTPChecker struct {
	cfg    HTTPCheckerConfig
	logger *zap.Logger

	probes singleflight.Group

	mu        sync.Mutex
	checkedAt time.Time
	online    bool
}

// NewHTTPChecker constructs an HTTPChecker.
func NewHTTPChecker(cfg HTTPCheckerConfig) *HTTPChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPChecker{cfg: cfg, logger: logger.Named("connectivity")}
}

// Online probes the URL unless a result younger than TTL is cached.
// Concurrent callers share one probe. The probe is detached from ctx, so a
// caller that gives up early gets the last known answer and never caches a
// result of its own cancellation.
func (h *HTTPChecker) Online(ctx context.Context) bool {
	if online, fresh := h.cached(); fresh {
		return online
	}
	probeCtx := context.WithoutCancel(ctx)
	ch := h.probes.DoChan("probe", func() (any, error) {
		online := h.probe(probeCtx)
		h.mu.Lock()
		h.online = online
		h.checkedAt = h.cfg.Now()
		h.mu.Unlock()
		return online, nil
	})
	select {
	case res := <-ch:
		return res.Val.(bool) //nolint:forcetypeassert // the probe func only returns bool
	case <-ctx.Done():
		online, _ := h.cached()
		return online
	}
}

func (h *HTTPChecker) cached() (online, fresh bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checkedAt.IsZero() {
		return false, false
	}
	return h.online, h.cfg.Now().Sub(h.checkedAt) < h.cfg.TTL
}

func (h *HTTPChecker) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.cfg.URL, nil)
	if err != nil {
		h.logger.Warn("invalid connectivity url", zap.String("url", h.cfg.URL), zap.Error(err))
		return false
	}
	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		h.logger.Debug("connectivity probe failed", zap.Error(err))
		return false
	}
	_ = resp.Body.Close()
	return true
}
