package proxy

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// proxyConn gives the semaphore slot back when the HTTP client closes the
// connection.
type proxyConn struct {
	net.Conn
	releaseOnce sync.Once
	release     func()
}

func (pc *proxyConn) Close() error {
	pc.releaseOnce.Do(pc.release)
	return pc.Conn.Close()
}

// DialContext opens addr through the next proxy in the pool. Without
// proxies it dials directly.
func (m *Manager) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	directDialer := &net.Dialer{Timeout: m.timeout}

	pURL := m.Next()
	if pURL == nil {
		return directDialer.DialContext(ctx, network, addr)
	}

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for proxy slot: %w", ctx.Err())
	}
	release := func() { <-m.slots }

	// socks5 expects an address; socks5h lets the proxy resolve the name.
	if pURL.Scheme == "socks5" {
		addr = resolveLocally(ctx, addr)
	}

	start := time.Now()
	pdialer, err := netproxy.FromURL(pURL, directDialer)
	if err != nil {
		release()
		return nil, fmt.Errorf("proxy %s: %w", pURL.Host, err)
	}

	var conn net.Conn
	if cdialer, ok := pdialer.(netproxy.ContextDialer); ok {
		conn, err = cdialer.DialContext(ctx, network, addr)
	} else {
		conn, err = pdialer.Dial(network, addr)
	}
	if err != nil {
		release()
		log.Printf("[DEBUG-PROXY] FAILED to dial %s via %s. Took %v. Err: %v", addr, pURL.Host, time.Since(start), err)
		return nil, err
	}

	return &proxyConn{Conn: conn, release: release}, nil
}

func resolveLocally(ctx context.Context, addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || net.ParseIP(host) != nil {
		return addr
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil || len(ips) == 0 {
		return addr
	}
	resolved := ips[0].IP.String()
	for _, ip := range ips {
		if ip.IP.To4() != nil {
			resolved = ip.IP.String()
			break
		}
	}
	return net.JoinHostPort(resolved, port)
}
