// Package source is the source manager: it persists the list of configured
// SMB sources to a JSON file sibling to the catalog database, encrypting
// each source's password (not its username) at rest through internal/vault,
// and drives internal/smbfs
// session registration and liveness probing.
//
// It is grounded on rclone's fs/config package: config.go's
// load-from-disk/rewrite-on-change persistence idiom and obscure.go's
// "encrypt on write, decrypt on read, auto-migrate plaintext" pattern are
// both mirrored here, generalized from rclone's INI-style remote config to
// this system's JSON source list.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nasindex/nasindex/internal/nerrors"
	"github.com/nasindex/nasindex/internal/smbfs"
	"github.com/nasindex/nasindex/internal/vault"
)

// Entry is one configured source, persisted to disk with its Password field
// passed through the vault; Username and the other fields are stored as
// given.
type Entry struct {
	Host      string `json:"host"`
	Port      string `json:"port,omitempty"`
	Share     string `json:"share"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Domain    string `json:"domain,omitempty"`
	Subfolder string `json:"subfolder,omitempty"`
	Label     string `json:"label"`
}

// ID mirrors smbfs.Source.ID: host/share[/subfolder], trailing slash
// stripped. It is the non-surrogate identifier the specification requires.
func (e Entry) ID() string {
	return smbfs.Source{Host: e.Host, Share: e.Share, Subfolder: e.Subfolder}.ID()
}

func (e Entry) toSMB() smbfs.Source {
	return smbfs.Source{
		Host:      e.Host,
		Port:      e.Port,
		Share:     e.Share,
		Username:  e.Username,
		Password:  e.Password,
		Domain:    e.Domain,
		Subfolder: e.Subfolder,
		Label:     e.Label,
	}
}

// StatusEntry is a listSources/connectionStatus row augmented with a
// liveness flag.
type StatusEntry struct {
	Entry
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

type fileFormat struct {
	Sources []Entry `json:"sources"`
}

// Manager is the source manager. One Manager owns the on-disk source list
// and the smbfs.Client sessions it registers against.
type Manager struct {
	path   string
	vault  *vault.Vault
	client *smbfs.Client

	mu      sync.Mutex
	entries map[string]Entry // keyed by ID
}

// Open loads (or initializes) the source list at path, sibling to the
// catalog database, using v for credential encryption and client for SMB
// session registration.
func Open(path string, v *vault.Vault, client *smbfs.Client) (*Manager, error) {
	m := &Manager{path: path, vault: v, client: client, entries: map[string]Entry{}}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "read source file", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "parse source file", err)
	}

	migrated := false
	for _, e := range ff.Sources {
		dec, didMigrate, err := m.decryptEntry(e)
		if err != nil {
			return err
		}
		migrated = migrated || didMigrate
		m.entries[dec.ID()] = dec
	}
	if migrated {
		return m.persistLocked()
	}
	return nil
}

// decryptEntry decrypts e's Password field, reporting whether it was found
// stored as legacy plaintext (triggering auto-migration on the next write).
func (m *Manager) decryptEntry(e Entry) (Entry, bool, error) {
	wasPlain := e.Password != "" && !vault.IsEncrypted(e.Password)
	plain, err := m.vault.Decrypt(e.Password)
	if err != nil {
		return Entry{}, false, nerrors.Wrap(nerrors.EKeyLost, "decrypt source credential", err)
	}
	e.Password = plain
	return e, wasPlain, nil
}

// AddSource registers a new source: rejects duplicates by ID, persists it
// with its password encrypted, then attempts SMB registration. Per the
// specification's resolved Open Question, the entry is kept even if
// registration fails; the caller sees the registration error but a later
// scan will retry.
func (m *Manager) AddSource(ctx context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	id := e.ID()
	if _, exists := m.entries[id]; exists {
		m.mu.Unlock()
		return Entry{}, nerrors.New(nerrors.EDuplicateSource, fmt.Sprintf("source %q already exists", id))
	}
	m.entries[id] = e
	persistErr := m.persistLocked()
	m.mu.Unlock()

	if persistErr != nil {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return Entry{}, persistErr
	}

	regErr := m.client.RegisterSource(ctx, e.toSMB())
	return e, regErr
}

// RemoveSourceResult reports the outcome of RemoveSource.
type RemoveSourceResult struct {
	Success      bool
	DeletedCount int
}

// CatalogPurger is the narrow interface the catalog store satisfies so the
// source manager can cascade-delete a removed source's rows without
// importing internal/catalog directly (which would create a cycle, since
// the catalog doesn't need to know about sources).
type CatalogPurger interface {
	PurgeByLabelPrefix(ctx context.Context, label string) (int, error)
}

// RemoveSource deletes a source from the persisted list and unregisters its
// SMB session, then asks purger to cascade-delete every catalog row rooted
// at the source's label.
func (m *Manager) RemoveSource(ctx context.Context, id string, purger CatalogPurger) (RemoveSourceResult, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return RemoveSourceResult{Success: false}, nil
	}
	delete(m.entries, id)
	persistErr := m.persistLocked()
	m.mu.Unlock()

	if persistErr != nil {
		m.mu.Lock()
		m.entries[id] = e
		m.mu.Unlock()
		return RemoveSourceResult{}, persistErr
	}

	m.client.UnregisterSource(e.toSMB())

	count, err := purger.PurgeByLabelPrefix(ctx, e.Label)
	if err != nil {
		return RemoveSourceResult{Success: true, DeletedCount: count}, err
	}
	return RemoveSourceResult{Success: true, DeletedCount: count}, nil
}

// ListSources returns every configured source, decrypted, sorted by ID.
func (m *Manager) ListSources() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get returns the source with the given ID.
func (m *Manager) Get(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok
}

// ConnectionStatus lists every source with a liveness flag obtained by
// probing each one with TestConnection.
func (m *Manager) ConnectionStatus(ctx context.Context) []StatusEntry {
	entries := m.ListSources()
	out := make([]StatusEntry, 0, len(entries))
	for _, e := range entries {
		st := StatusEntry{Entry: e, Reachable: true}
		if err := m.client.TestConnection(ctx, e.toSMB()); err != nil {
			st.Reachable = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// persistLocked rewrites the source file with every Password encrypted;
// Username is written as given. Caller must hold m.mu. Writes are atomic: a temp file is written then
// renamed over the target, so a crash mid-write cannot corrupt the source
// list.
func (m *Manager) persistLocked() error {
	ff := fileFormat{Sources: make([]Entry, 0, len(m.entries))}
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := m.entries[id]
		enc, err := m.vault.Encrypt(e.Password)
		if err != nil {
			return nerrors.Wrap(nerrors.EInvalidConfig, "encrypt source credential", err)
		}
		e.Password = enc
		ff.Sources = append(ff.Sources, e)
	}

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "marshal source file", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".nas_connection.*.tmp")
	if err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "create temp source file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nerrors.Wrap(nerrors.EInvalidConfig, "write temp source file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nerrors.Wrap(nerrors.EInvalidConfig, "close temp source file", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return nerrors.Wrap(nerrors.EInvalidConfig, "chmod source file", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return nerrors.Wrap(nerrors.EInvalidConfig, "rename source file", err)
	}
	return nil
}

// LabelInUse reports whether label is already claimed by a configured
// source, used by the HTTP surface to reject a duplicate label up front.
func (m *Manager) LabelInUse(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Label == label {
			return true
		}
	}
	return false
}

// SMBSources returns every configured source translated to smbfs.Source,
// the form internal/pathresolve needs for logical<->SMB path resolution.
func (m *Manager) SMBSources() []smbfs.Source {
	entries := m.ListSources()
	out := make([]smbfs.Source, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.toSMB())
	}
	return out
}

// validLabel reports whether label is a bare path segment: non-empty, with
// no forward slash or backslash.
func validLabel(label string) bool {
	return label != "" && !strings.ContainsRune(label, '/') && !strings.ContainsRune(label, '\\')
}

// ErrInvalidLabel is returned by callers (HTTP surface) validating a label
// before calling AddSource.
var ErrInvalidLabel = nerrors.New(nerrors.EInvalidConfig, "label must be a single non-empty path segment")

// ValidateLabel returns ErrInvalidLabel if label is not a valid source
// label.
func ValidateLabel(label string) error {
	if !validLabel(label) {
		return ErrInvalidLabel
	}
	return nil
}
