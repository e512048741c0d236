package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is the network link under the broker session. Connect only
// requests a connection; completion is observed through Ready.
type Transport interface {
	Connect()
	Ready() bool
}

// Probe treats the network as up while a TCP dial to addr succeeds. The last
// result is cached for ttl; an expired result is refreshed in the background
// and the stale value is served until the refresh lands.
type Probe struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	log     *logrus.Entry

	dial func(ctx context.Context, network, address string) (net.Conn, error)
	now  func() time.Time

	mu       sync.Mutex
	up       bool
	checked  time.Time
	inflight bool
}

func NewProbe(addr string, timeout, ttl time.Duration, log *logrus.Entry) *Probe {
	d := &net.Dialer{}
	return &Probe{
		addr:    addr,
		timeout: timeout,
		ttl:     ttl,
		log:     log,
		dial:    d.DialContext,
		now:     time.Now,
	}
}

func (p *Probe) Connect() {
	p.refresh()
}

func (p *Probe) Ready() bool {
	p.mu.Lock()
	up, stale := p.up, p.now().Sub(p.checked) > p.ttl
	p.mu.Unlock()
	if up && stale {
		p.refresh()
	}
	return up
}

func (p *Probe) refresh() {
	p.mu.Lock()
	if p.inflight {
		p.mu.Unlock()
		return
	}
	p.inflight = true
	p.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		conn, err := p.dial(ctx, "tcp", p.addr)
		if err == nil {
			_ = conn.Close()
		}

		p.mu.Lock()
		was := p.up
		p.up = err == nil
		p.checked = p.now()
		p.inflight = false
		p.mu.Unlock()

		switch {
		case err != nil && was:
			p.log.Warnf("network probe to %s failed: %v", p.addr, err)
		case err != nil:
			p.log.Debugf("network probe to %s failed: %v", p.addr, err)
		case !was:
			p.log.Infof("network reachable via %s", p.addr)
		}
	}()
}

// AlwaysUp is the transport for simulated runs and hosts where the OS owns
// the link.
type AlwaysUp struct{}

func (AlwaysUp) Connect()    {}
func (AlwaysUp) Ready() bool { return true }
