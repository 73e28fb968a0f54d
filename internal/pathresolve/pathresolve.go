// Package pathresolve is the path resolver: given a logical path, it finds
// the owning source and builds the SMB path, the narrow service the
// out-of-scope preview and stream collaborators depend on.
//
// Grounded on rclone's fs.NewFs remote-string parsing (splitting a
// "remote:path" reference into a registered backend plus a path within it)
// generalized here to this system's "/label/rest" logical path namespace
// over statically registered sources rather than a colon-delimited remote
// name.
package pathresolve

import (
	"github.com/nasindex/nasindex/internal/nerrors"
	"github.com/nasindex/nasindex/internal/smbfs"
)

// SourceLister is the narrow view of the source manager this package
// depends on, avoiding an import of internal/source (which already imports
// smbfs; pathresolve only needs the resolved list).
type SourceLister interface {
	SMBSources() []smbfs.Source
}

// Resolver resolves logical paths against a live source list.
type Resolver struct {
	sources SourceLister
}

// New builds a Resolver backed by sources, re-queried on every Resolve call
// so source additions/removals take effect without restarting the
// resolver.
func New(sources SourceLister) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve looks up the source whose label equals logical's first path
// component and returns the SMB-spelled path for its relative remainder.
func (r *Resolver) Resolve(logical string) (smbPath string, source smbfs.Source, err error) {
	list := r.sources.SMBSources()
	if len(list) == 0 {
		return "", smbfs.Source{}, nerrors.ErrNoSources
	}

	smbPath, ok := smbfs.SMBFromLogical(logical, list)
	if !ok {
		return "", smbfs.Source{}, nerrors.ErrNotFound
	}

	label, _, _ := splitLabel(logical)
	for _, s := range list {
		if s.Label == label {
			return smbPath, s, nil
		}
	}
	return "", smbfs.Source{}, nerrors.ErrNotFound
}

func splitLabel(logical string) (label, rest string, ok bool) {
	if len(logical) == 0 || logical[0] != '/' {
		return "", "", false
	}
	trimmed := logical[1:]
	for i, c := range trimmed {
		if c == '/' {
			return trimmed[:i], trimmed[i+1:], true
		}
	}
	return trimmed, "", trimmed != ""
}
