// Package smbfs is the SMB access layer: it owns authenticated sessions per
// configured source, walks and stats remote paths, streams file content, and
// translates between the catalog's logical path namespace and SMB spelling.
//
// It is grounded directly on rclone's backend/smb package: connpool.go's
// dial/getConnection/putConnection/drainPool pattern becomes this package's
// connection pool, smb.go's List/stat/Open become Walk/Stat/Open/ReadBytes,
// and smb.go's toSambaPath/toNativePath become the logical<->SMB path
// translation here. Where rclone exposes a read/write fs.Fs (Put, Mkdir,
// Rmdir, Move...), this layer is read-only, matching the specification's
// "never writes, renames, or deletes remote files" scope.
package smbfs

import (
	"path"
	"strings"
	"time"
)

// Source is a configured SMB endpoint. The zero value is not valid;
// construct it directly with all required fields set.
type Source struct {
	Host      string
	Port      string // default "445"
	Share     string
	Username  string
	Password  string // plaintext in memory; encrypted at rest by internal/vault
	Domain    string // NTLM domain, default "WORKGROUP"
	Subfolder string // optional root within the share
	Label     string // first segment of every logical path under this source

	UseKerberos    bool
	KerberosCCache string // empty uses KRB5CCNAME / the user's default ccache
	SPN            string // service principal name; defaults to "cifs/<Host>"
}

// ID returns the source's non-surrogate identifier: host/share, with any
// subfolder appended and trailing slashes stripped, per the specification.
func (s Source) ID() string {
	id := s.Host + "/" + s.Share
	if sub := strings.Trim(s.Subfolder, "/"); sub != "" {
		id += "/" + sub
	}
	return strings.TrimRight(id, "/")
}

// Port or its default.
func (s Source) port() string {
	if s.Port == "" {
		return "445"
	}
	return s.Port
}

func (s Source) domain() string {
	if s.Domain == "" {
		return "WORKGROUP"
	}
	return s.Domain
}

// Stat describes a single remote entry, mirroring os.FileInfo's subset the
// specification needs plus an explicit ctime (SMB exposes it; os.FileInfo
// does not).
type Stat struct {
	Name        string
	Size        int64
	ModTime     time.Time
	CreateTime  time.Time
	IsDirectory bool
}

// DirEntry is one line of a Walk callback: a directory's own SMB path and
// the stat of every subdirectory and file found directly within it, reusing
// the os.FileInfo ReadDir already returned rather than re-statting each
// entry.
type DirEntry struct {
	DirPath string
	Dirs    []Stat
	Files   []Stat
}

// WalkFunc is called once per directory visited by Walk. Returning an error
// aborts the walk immediately, propagated back to Walk's caller; a caller
// that wants to recover from a single bad directory and keep going should
// swallow that directory's error inside fn rather than returning it.
type WalkFunc func(entry DirEntry) error

// LogicalFromSMB converts an SMB path under source into the catalog's
// logical path form: "/<label>/<relative, slash-separated>".
func LogicalFromSMB(smbPath string, source Source) string {
	rel := toNativePath(smbPath)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "/" + source.Label
	}
	return path.Join("/"+source.Label, rel)
}

// SMBFromLogical resolves a logical path against the list of configured
// sources, returning the SMB-spelled path owned by the matching source.
func SMBFromLogical(logical string, sources []Source) (smbPath string, ok bool) {
	label, rel, valid := splitLogical(logical)
	if !valid {
		return "", false
	}
	for _, s := range sources {
		if s.Label == label {
			return toSambaPath(rel), true
		}
	}
	return "", false
}

// splitLogical splits "/<label>/<rest>" into label and rest. It requires a
// leading slash and a non-empty label, per the wire format in the spec.
func splitLogical(logical string) (label, rest string, ok bool) {
	if !strings.HasPrefix(logical, "/") {
		return "", "", false
	}
	trimmed := strings.TrimPrefix(logical, "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "/", 2)
	label = parts[0]
	if label == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		rest = parts[1]
	}
	return label, rest, true
}

func toSambaPath(p string) string {
	return strings.ReplaceAll(path.Clean("/"+p), "/", "\\")
}

func toNativePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
