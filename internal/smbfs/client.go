package smbfs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// Client is the entry point the source manager and scanner use to talk to
// SMB shares. One Client serves every registered source; it owns the
// connection pool registry and the temp-file registry DownloadToTemp
// populates, mirroring the single-Fs-per-remote shape of rclone's backend/smb
// generalized to many sources.
type Client struct {
	registry *sessionRegistry
	temps    *tempRegistry
}

// NewClient builds a Client. idleTimeout governs how long an unused SMB
// session is kept warm before its pool drains it (mirrors --smb-idle-timeout).
func NewClient(idleTimeout time.Duration) *Client {
	return &Client{
		registry: NewSessionRegistry(idleTimeout),
		temps:    newTempRegistry(),
	}
}

// RegisterSource establishes a pooled session for src, failing fast with
// nerrors.EAuth/EUnreachable if the share cannot be dialed and mounted.
func (c *Client) RegisterSource(ctx context.Context, src Source) error {
	return c.registry.Register(ctx, src)
}

// UnregisterSource drains and forgets src's connection pool. It is a no-op
// if src was never registered.
func (c *Client) UnregisterSource(src Source) {
	c.registry.mu.Lock()
	p, ok := c.registry.pools[src.ID()]
	if ok {
		delete(c.registry.pools, src.ID())
	}
	c.registry.mu.Unlock()
	if ok {
		p.drain()
	}
}

// TestConnection dials src, mounts its share, and stats the source's root —
// the non-destructive probe behind the source manager's ConnectionStatus.
func (c *Client) TestConnection(ctx context.Context, src Source) error {
	p := c.registry.poolFor(src)
	conn, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(conn, nil)
	if _, err := conn.share.Stat(toSambaPath(src.Subfolder)); err != nil {
		return nerrors.Wrap(nerrors.ENotFound, "stat share root", err)
	}
	return nil
}

// DiscoverShares lists the share names exposed by the server at host, using
// an unauthenticated-share-free session bound only by username/password
// (no share mount), for the "pick a share" step of adding a source.
func (c *Client) DiscoverShares(ctx context.Context, host, port, username, password, domain string) ([]string, error) {
	probe := Source{Host: host, Port: port, Username: username, Password: password, Domain: domain}
	p := newPool(probe, 0)
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.close() }()

	names, err := conn.session.ListSharenames()
	if err != nil {
		return nil, nerrors.Wrap(nerrors.EUnreachable, "list shares", err)
	}
	sort.Strings(names)
	return names, nil
}

// Stat returns metadata for a single path within src.
func (c *Client) Stat(ctx context.Context, src Source, smbPath string) (Stat, error) {
	p := c.registry.poolFor(src)
	conn, err := p.get(ctx)
	if err != nil {
		return Stat{}, err
	}
	defer p.put(conn, err)

	fi, err := conn.share.Stat(toSambaPath(smbPath))
	if err != nil {
		return Stat{}, translateFsError(err)
	}
	return statFromFileInfo(fi), nil
}

// Walk visits every directory reachable from root (relative to src's
// subfolder), calling fn once per directory with the entries found directly
// within it. The first directory read failure, error returned by fn, or
// context cancellation stops the walk and is returned.
func (c *Client) Walk(ctx context.Context, src Source, root string, fn WalkFunc) error {
	p := c.registry.poolFor(src)
	conn, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(conn, nil)

	return c.walkDir(ctx, conn, toSambaPath(filepath.Join(src.Subfolder, root)), fn)
}

func (c *Client) walkDir(ctx context.Context, conn *conn, dirPath string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := conn.share.ReadDir(dirPath)
	if err != nil {
		return translateFsError(err)
	}

	var dirs, files []Stat
	var subdirNames []string
	for _, e := range entries {
		if e.Name() == "." || e.Name() == ".." {
			continue
		}
		st := statFromFileInfo(e)
		if e.IsDir() {
			dirs = append(dirs, st)
			subdirNames = append(subdirNames, e.Name())
		} else {
			files = append(files, st)
		}
	}

	if err := fn(DirEntry{DirPath: dirPath, Dirs: dirs, Files: files}); err != nil {
		return err
	}

	for _, name := range subdirNames {
		if err := c.walkDir(ctx, conn, dirPath+`\`+name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Open returns a streaming reader for the file at smbPath. The caller must
// Close it; doing so does not return the pooled connection, since the share
// handle is shared across reads rather than checked out per-open.
func (c *Client) Open(ctx context.Context, src Source, smbPath string) (io.ReadCloser, error) {
	p := c.registry.poolFor(src)
	conn, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	p.put(conn, nil)

	f, err := conn.share.OpenFile(toSambaPath(smbPath), os.O_RDONLY, 0)
	if err != nil {
		return nil, translateFsError(err)
	}
	return f, nil
}

// ReadBytes reads up to maxBytes from the start of smbPath, used by the
// content-fingerprint stage of Phase 2 enrichment.
func (c *Client) ReadBytes(ctx context.Context, src Source, smbPath string, maxBytes int64) ([]byte, error) {
	f, err := c.Open(ctx, src, smbPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxBytes))
}

// tempRegistry tracks files DownloadToTemp materializes on local disk, so
// CleanupTemp (and a process-exit sweep) can remove them reliably even
// across goroutines.
type tempRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newTempRegistry() *tempRegistry {
	return &tempRegistry{paths: map[string]struct{}{}}
}

// DownloadToTemp copies smbPath's full content to a local temp file (used by
// the out-of-scope preview/extraction collaborators, which need a local
// path rather than a stream) and returns that path.
func (c *Client) DownloadToTemp(ctx context.Context, src Source, smbPath string) (string, error) {
	f, err := c.Open(ctx, src, smbPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var suffix [8]byte
	_, _ = rand.Read(suffix[:])
	local := filepath.Join(os.TempDir(), "nasindex-"+hex.EncodeToString(suffix[:])+filepath.Ext(smbPath))

	out, err := os.OpenFile(local, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", nerrors.Wrap(nerrors.ETransient, "create temp file", err)
	}
	if _, err := io.Copy(out, f); err != nil {
		_ = out.Close()
		_ = os.Remove(local)
		return "", nerrors.Wrap(nerrors.ETransient, "write temp file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(local)
		return "", nerrors.Wrap(nerrors.ETransient, "close temp file", err)
	}

	c.temps.mu.Lock()
	c.temps.paths[local] = struct{}{}
	c.temps.mu.Unlock()
	return local, nil
}

// CleanupTemp removes a file previously returned by DownloadToTemp. It is a
// no-op if local was never registered or was already cleaned up.
func (c *Client) CleanupTemp(local string) error {
	c.temps.mu.Lock()
	_, ok := c.temps.paths[local]
	delete(c.temps.paths, local)
	c.temps.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return nerrors.Wrap(nerrors.ETransient, "remove temp file", err)
	}
	return nil
}

// CleanupAllTemp sweeps every outstanding temp file, used on daemon
// shutdown so a crashed enrichment worker doesn't leak disk space forever.
func (c *Client) CleanupAllTemp() {
	c.temps.mu.Lock()
	paths := make([]string, 0, len(c.temps.paths))
	for p := range c.temps.paths {
		paths = append(paths, p)
	}
	c.temps.paths = map[string]struct{}{}
	c.temps.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// Shutdown drains all pooled connections and removes outstanding temp files.
func (c *Client) Shutdown() {
	c.registry.Shutdown()
	c.CleanupAllTemp()
}

// statFromFileInfo adapts the go-smb2 os.FileInfo into our Stat type. The
// share layer only surfaces os.FileInfo (see backend/smb's own Stat calls),
// so CreateTime falls back to ModTime rather than reaching for a
// creation-time field no observed caller in the pack actually uses.
func statFromFileInfo(fi os.FileInfo) Stat {
	return Stat{
		Name:        fi.Name(),
		Size:        fi.Size(),
		ModTime:     fi.ModTime(),
		CreateTime:  fi.ModTime(),
		IsDirectory: fi.IsDir(),
	}
}

func translateFsError(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return nerrors.Wrap(nerrors.ENotFound, "path not found", err)
	}
	if os.IsPermission(err) {
		return nerrors.Wrap(nerrors.EAuth, "permission denied", err)
	}
	return nerrors.Wrap(nerrors.ETransient, "SMB operation failed", err)
}

// GuessMIME infers a MIME type from a file's extension only; the
// specification scopes content-sniffing to the out-of-scope extraction
// collaborators, so this stays a pure extension lookup like rclone's own
// fs/operations MIME detection fallback.
func GuessMIME(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if idx := strings.IndexByte(t, ';'); idx >= 0 {
			t = t[:idx]
		}
		return strings.TrimSpace(t)
	}
	if t, ok := fallbackMIME[ext]; ok {
		return t
	}
	return "application/octet-stream"
}

var fallbackMIME = map[string]string{
	".mkv":  "video/x-matroska",
	".heic": "image/heic",
	".flac": "audio/flac",
	".md":   "text/markdown",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
}
