package gatekeeper

import (
	"context"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"phishguard/internal/cache"
	"phishguard/internal/models"
	"phishguard/internal/urlutil"
)

const (
	// DefaultPendingWindow suppresses a second interception in the same tab.
	DefaultPendingWindow = 5 * time.Second
	DefaultCheckTimeout  = 3 * time.Minute
	// pendingSlack is how long a resolved result waits for its page after
	// the check deadline before it is dropped.
	pendingSlack = time.Minute
)

// NavigationEvent is a top-level or sub-frame navigation in a browser tab.
// FrameID 0 is the main frame.
type NavigationEvent struct {
	TabID   int    `json:"tabId"`
	URL     string `json:"url"`
	FrameID int    `json:"frameId"`
}

// Delivery is what the interstitial page receives once the check is done.
type Delivery struct {
	TabID       int                 `json:"tabId"`
	OriginalURL string              `json:"originalUrl"`
	Result      models.ScanResponse `json:"result"`
}

type Checker interface {
	CheckWebsite(ctx context.Context, url string) models.ScanResponse
}

type Navigator interface {
	Redirect(tabID int, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(tabID int, url string) error

func (f NavigatorFunc) Redirect(tabID int, url string) error { return f(tabID, url) }

// Messenger hands a result to the page in a tab. It fails when the page is
// not listening yet.
type Messenger interface {
	Deliver(d Delivery) error
}

type Config struct {
	// Interstitial is the page tabs are parked on while a check runs; the
	// original URL is appended as ?url=.
	Interstitial  string
	PendingWindow time.Duration
	CheckTimeout  time.Duration
	SafeTTL       time.Duration
	Now           func() time.Time
}

type pendingCheck struct {
	url     string
	started time.Time
	result  *models.ScanResponse
}

// Gatekeeper parks navigations on an interstitial while the URL is checked,
// then hands the verdict to the page. Per tab it moves from idle to
// pending (check running) to resolved (result stored, not yet delivered).
type Gatekeeper struct {
	checker   Checker
	nav       Navigator
	messenger Messenger
	safe      *cache.SafeSites
	cfg       Config

	mu      sync.Mutex
	pending map[int]*pendingCheck

	ctx context.Context
	wg  sync.WaitGroup
}

func New(ctx context.Context, checker Checker, nav Navigator, messenger Messenger, cfg Config) *Gatekeeper {
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = DefaultPendingWindow
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gatekeeper{
		checker:   checker,
		nav:       nav,
		messenger: messenger,
		safe:      cache.NewSafeSites(cfg.SafeTTL, cfg.Now),
		cfg:       cfg,
		pending:   make(map[int]*pendingCheck),
		ctx:       ctx,
	}
}

// InterstitialURL is where a tab is sent while rawURL is checked.
func (g *Gatekeeper) InterstitialURL(rawURL string) string {
	sep := "?"
	if strings.Contains(g.cfg.Interstitial, "?") {
		sep = "&"
	}
	return g.cfg.Interstitial + sep + "url=" + url.QueryEscape(rawURL)
}

// OnNavigation decides whether evt is intercepted. When it is, the tab has
// been redirected and a check runs in the background.
func (g *Gatekeeper) OnNavigation(evt NavigationEvent) bool {
	if !isWebURL(evt.URL) || evt.FrameID != 0 {
		return false
	}
	if g.cfg.Interstitial != "" && strings.HasPrefix(evt.URL, g.cfg.Interstitial) {
		return false
	}

	host := urlutil.Hostname(evt.URL)
	if g.safe.IsSafe(host) {
		log.Printf("[Gatekeeper] Skipping check for known safe site: %s", host)
		return false
	}

	now := g.cfg.Now()

	g.mu.Lock()
	if existing, ok := g.pending[evt.TabID]; ok && now.Sub(existing.started) < g.cfg.PendingWindow {
		g.mu.Unlock()
		return false
	}
	p := &pendingCheck{url: evt.URL, started: now}
	g.pending[evt.TabID] = p
	g.mu.Unlock()

	log.Printf("[Gatekeeper] Intercepting navigation to: %s", evt.URL)
	if g.nav != nil {
		if err := g.nav.Redirect(evt.TabID, g.InterstitialURL(evt.URL)); err != nil {
			log.Printf("[ERROR] redirect tab %d: %v", evt.TabID, err)
		}
	}

	g.wg.Add(1)
	go g.runCheck(evt.TabID, p)
	return true
}

func (g *Gatekeeper) runCheck(tabID int, p *pendingCheck) {
	defer g.wg.Done()

	res := g.check(p.url)
	if res.IsSafe {
		g.safe.MarkSafe(urlutil.Hostname(p.url))
	}

	g.mu.Lock()
	current := g.pending[tabID] == p
	if current {
		p.result = &res
	}
	g.mu.Unlock()
	if !current {
		// The tab moved on to another interception.
		return
	}

	d := Delivery{TabID: tabID, OriginalURL: p.url, Result: res}
	if g.messenger == nil {
		return
	}
	if err := g.messenger.Deliver(d); err != nil {
		log.Printf("[Gatekeeper] Couldn't send result to tab %d yet, will retry when page is ready: %v", tabID, err)
		return
	}

	g.mu.Lock()
	if g.pending[tabID] == p {
		delete(g.pending, tabID)
	}
	g.mu.Unlock()
}

func (g *Gatekeeper) check(rawURL string) (res models.ScanResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Safety check failed for %s: %v", rawURL, r)
			res = models.ScanResponse{IsSafe: false, Message: "Error checking website safety"}
		}
	}()

	ctx, cancel := context.WithTimeout(g.ctx, g.cfg.CheckTimeout)
	defer cancel()

	res = g.checker.CheckWebsite(ctx, rawURL)
	if ctx.Err() != nil && !res.IsSafe {
		return models.ScanResponse{IsSafe: false, Message: "Error checking website safety"}
	}
	return res
}

// Ready is called when the interstitial in tabID starts listening. A stored
// result is handed over exactly once.
func (g *Gatekeeper) Ready(tabID int) (Delivery, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pending[tabID]
	if !ok || p.result == nil {
		return Delivery{}, false
	}
	delete(g.pending, tabID)
	return Delivery{TabID: tabID, OriginalURL: p.url, Result: *p.result}, true
}

// Pending reports whether tabID has an unresolved or undelivered check.
func (g *Gatekeeper) Pending(tabID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[tabID]
	return ok
}

// MarkSafe trusts the hostname of rawURL for the safe-site TTL.
func (g *Gatekeeper) MarkSafe(rawURL string) {
	g.safe.MarkSafe(urlutil.Hostname(rawURL))
}

func (g *Gatekeeper) IsSafe(rawURL string) bool {
	return g.safe.IsSafe(urlutil.Hostname(rawURL))
}

// DropStale forgets checks started longer ago than the check timeout plus
// a grace period. Results for tabs that were closed before their page
// listened end up here.
func (g *Gatekeeper) DropStale() int {
	cutoff := g.cfg.Now().Add(-(g.cfg.CheckTimeout + pendingSlack))

	g.mu.Lock()
	defer g.mu.Unlock()
	dropped := 0
	for tabID, p := range g.pending {
		if p.started.Before(cutoff) {
			delete(g.pending, tabID)
			dropped++
		}
	}
	return dropped
}

// StartCleanup drops expired safe-site marks and stale pending checks every
// interval until ctx is done.
func (g *Gatekeeper) StartCleanup(ctx context.Context, interval time.Duration) {
	g.safe.StartCleanup(ctx, interval)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := g.DropStale(); n > 0 {
					log.Printf("[Gatekeeper] Dropped %d stale pending checks", n)
				}
			}
		}
	}()
}

// Wait blocks until every running check has finished.
func (g *Gatekeeper) Wait() {
	g.wg.Wait()
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return (s == "http" || s == "https") && u.Host != ""
}
