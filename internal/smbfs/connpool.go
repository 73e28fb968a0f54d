package smbfs

import (
	"context"
	"net"
	"sync"
	"time"

	smb2 "github.com/cloudsoda/go-smb2"

	"github.com/nasindex/nasindex/internal/nerrors"
)

const (
	minSleep      = 100 * time.Millisecond
	maxSleep      = 2 * time.Second
	decayConstant = 2
	dialAttempts  = 3
)

// conn wraps one authenticated SMB session plus the currently-mounted share,
// directly mirroring rclone's backend/smb/connpool.go conn type.
type conn struct {
	netConn   net.Conn
	session   *smb2.Session
	share     *smb2.Share
	shareName string
}

func (c *conn) mountShare(share string) error {
	if c.shareName == share {
		return nil
	}
	if c.share != nil {
		_ = c.share.Umount()
		c.share = nil
	}
	if share == "" {
		c.shareName = ""
		return nil
	}
	s, err := c.session.Mount(share)
	if err != nil {
		return err
	}
	c.share = s
	c.shareName = share
	return nil
}

func (c *conn) close() error {
	if c.share != nil {
		_ = c.share.Umount()
	}
	err := c.session.Logoff()
	return err
}

func (c *conn) alive() bool {
	return c.session.Echo() == nil
}

// sessionRegistry holds one connection pool per source, keyed by Source.ID,
// so registerSource is idempotent per host the way the specification
// requires.
type sessionRegistry struct {
	mu      sync.Mutex
	pools   map[string]*pool
	timeout time.Duration // idle pool drain, mirrors opt.IdleTimeout in connpool.go
}

// NewSessionRegistry constructs an empty registry. idleTimeout of zero
// disables idle connection draining.
func NewSessionRegistry(idleTimeout time.Duration) *sessionRegistry {
	return &sessionRegistry{pools: map[string]*pool{}, timeout: idleTimeout}
}

func (r *sessionRegistry) poolFor(src Source) *pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[src.ID()]
	if !ok {
		p = newPool(src, r.timeout)
		r.pools[src.ID()] = p
	}
	return p
}

// Register establishes (or verifies) an authenticated session for src. It is
// idempotent: calling it again for the same source reuses the existing pool.
func (r *sessionRegistry) Register(ctx context.Context, src Source) error {
	p := r.poolFor(src)
	c, err := p.get(ctx)
	if err != nil {
		return err
	}
	p.put(c, nil)
	return nil
}

// Shutdown drains every pool's idle connections.
func (r *sessionRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		p.drain()
	}
}

// pool is a per-source connection pool, the direct analogue of Fs.pool in
// rclone's backend/smb/smb.go plus the pool-mutation methods in connpool.go.
type pool struct {
	src   Source
	pacer *pacer

	mu         sync.Mutex
	conns      []*conn
	drainTimer *time.Timer
	timeout    time.Duration
}

func newPool(src Source, idleTimeout time.Duration) *pool {
	return &pool{
		src:     src,
		pacer:   newPacer(minSleep, maxSleep, decayConstant),
		timeout: idleTimeout,
	}
}

func (p *pool) dial(ctx context.Context) (*conn, error) {
	d := &net.Dialer{Timeout: 15 * time.Second}
	nc, err := d.DialContext(ctx, "tcp", p.src.Host+":"+p.src.port())
	if err != nil {
		return nil, nerrors.Wrap(nerrors.EUnreachable, "dial SMB host", err)
	}

	dialer := &smb2.Dialer{}
	if p.src.UseKerberos {
		cl, err := defaultKerberosFactory.getClient(p.src.KerberosCCache)
		if err != nil {
			_ = nc.Close()
			return nil, nerrors.Wrap(nerrors.EAuth, "load Kerberos client", err)
		}
		spn := p.src.SPN
		if spn == "" {
			spn = "cifs/" + p.src.Host
		}
		dialer.Initiator = &smb2.Krb5Initiator{Client: cl, TargetSPN: spn}
	} else {
		dialer.Initiator = &smb2.NTLMInitiator{
			User:      p.src.Username,
			Password:  p.src.Password,
			Domain:    p.src.domain(),
			TargetSPN: p.src.SPN,
		}
	}
	session, err := dialer.DialConn(ctx, nc, p.src.Host+":"+p.src.port())
	if err != nil {
		_ = nc.Close()
		return nil, nerrors.Wrap(nerrors.EAuth, "SMB session setup", err)
	}
	c := &conn{netConn: nc, session: session}
	if err := c.mountShare(p.src.Share); err != nil {
		_ = c.close()
		return nil, nerrors.Wrap(nerrors.ENotFound, "mount SMB share", err)
	}
	return c, nil
}

// get returns a pooled connection or dials a new one, retrying transient
// dial failures through p.pacer.
func (p *pool) get(ctx context.Context) (*conn, error) {
	p.mu.Lock()
	for len(p.conns) > 0 {
		c := p.conns[0]
		p.conns = p.conns[1:]
		if c.alive() {
			p.mu.Unlock()
			return c, nil
		}
		_ = c.close()
	}
	p.mu.Unlock()

	var c *conn
	err := p.pacer.call(dialAttempts, func() error {
		var dialErr error
		c, dialErr = p.dial(ctx)
		return dialErr
	})
	return c, err
}

// put returns a connection to the pool. If err is non-nil and the
// connection does not answer an Echo, it is closed instead of pooled,
// mirroring connpool.go's putConnection.
func (p *pool) put(c *conn, err error) {
	if c == nil {
		return
	}
	if err != nil && !c.alive() {
		_ = c.close()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = append(p.conns, c)
	if p.timeout > 0 {
		if p.drainTimer == nil {
			p.drainTimer = time.AfterFunc(p.timeout, p.drain)
		} else {
			p.drainTimer.Reset(p.timeout)
		}
	}
}

func (p *pool) drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		_ = c.close()
	}
	p.conns = nil
}
