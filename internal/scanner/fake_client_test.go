package scanner

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/nasindex/nasindex/internal/nerrors"
	"github.com/nasindex/nasindex/internal/smbfs"
)

// fakeNode is one entry of an in-memory share tree, standing in for a real
// SMB server so phase1/phase2 can be exercised without one.
type fakeNode struct {
	name     string
	isDir    bool
	size     int64
	modTime  time.Time
	content  []byte
	children map[string]*fakeNode
}

func newFakeDir(name string) *fakeNode {
	return &fakeNode{name: name, isDir: true, children: map[string]*fakeNode{}}
}

// fakeClient implements SMBClient over an in-memory tree, one per test.
type fakeClient struct {
	root *fakeNode
}

func newFakeClient() *fakeClient {
	return &fakeClient{root: newFakeDir("")}
}

// addFile creates every missing parent directory and places a file at
// logicalPath (slash-separated, rooted at the share, e.g. "docs/a.txt").
func (f *fakeClient) addFile(p string, size int64, mtime time.Time, content []byte) {
	dir, name := path.Split(strings.Trim(p, "/"))
	node := f.mkdirAll(dir)
	node.children[name] = &fakeNode{name: name, size: size, modTime: mtime, content: content}
}

func (f *fakeClient) mkdirAll(dir string) *fakeNode {
	node := f.root
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return node
	}
	for _, part := range strings.Split(dir, "/") {
		child, ok := node.children[part]
		if !ok {
			child = newFakeDir(part)
			node.children[part] = child
		}
		node = child
	}
	return node
}

func (f *fakeClient) lookup(smbPath string) (*fakeNode, bool) {
	rel := strings.Trim(strings.ReplaceAll(smbPath, `\`, "/"), "/")
	node := f.root
	if rel == "" {
		return node, true
	}
	for _, part := range strings.Split(rel, "/") {
		child, ok := node.children[part]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

func toBackslash(p string) string {
	rel := strings.Trim(p, "/")
	if rel == "" {
		return `\`
	}
	return `\` + strings.ReplaceAll(rel, "/", `\`)
}

func (f *fakeClient) Stat(ctx context.Context, src smbfs.Source, smbPath string) (smbfs.Stat, error) {
	node, ok := f.lookup(smbPath)
	if !ok {
		return smbfs.Stat{}, nerrors.ErrNotFound
	}
	return smbfs.Stat{Name: node.name, Size: node.size, ModTime: node.modTime, CreateTime: node.modTime, IsDirectory: node.isDir}, nil
}

func (f *fakeClient) Walk(ctx context.Context, src smbfs.Source, root string, fn smbfs.WalkFunc) error {
	node, ok := f.lookup(root)
	if !ok {
		return nerrors.ErrNotFound
	}
	return f.walkNode(toBackslash(root), node, fn)
}

func (f *fakeClient) walkNode(dirSMBPath string, node *fakeNode, fn smbfs.WalkFunc) error {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	var dirs, files []smbfs.Stat
	var subdirs []*fakeNode
	for _, name := range names {
		child := node.children[name]
		st := smbfs.Stat{Name: child.name, Size: child.size, ModTime: child.modTime, CreateTime: child.modTime, IsDirectory: child.isDir}
		if child.isDir {
			dirs = append(dirs, st)
			subdirs = append(subdirs, child)
		} else {
			files = append(files, st)
		}
	}

	if err := fn(smbfs.DirEntry{DirPath: dirSMBPath, Dirs: dirs, Files: files}); err != nil {
		return err
	}
	for _, child := range subdirs {
		if err := f.walkNode(dirSMBPath+`\`+child.name, child, fn); err != nil {
			return err
		}
	}
	return nil
}

type fakeFile struct {
	*bytes.Reader
}

func (fakeFile) Close() error { return nil }

func (f *fakeClient) Open(ctx context.Context, src smbfs.Source, smbPath string) (io.ReadCloser, error) {
	node, ok := f.lookup(smbPath)
	if !ok || node.isDir {
		return nil, nerrors.ErrNotFound
	}
	return fakeFile{bytes.NewReader(node.content)}, nil
}

func (f *fakeClient) ReadBytes(ctx context.Context, src smbfs.Source, smbPath string, maxBytes int64) ([]byte, error) {
	node, ok := f.lookup(smbPath)
	if !ok || node.isDir {
		return nil, nerrors.ErrNotFound
	}
	if int64(len(node.content)) > maxBytes {
		return node.content[:maxBytes], nil
	}
	return node.content, nil
}

func (f *fakeClient) DownloadToTemp(ctx context.Context, src smbfs.Source, smbPath string) (string, error) {
	node, ok := f.lookup(smbPath)
	if !ok || node.isDir {
		return "", nerrors.ErrNotFound
	}
	tmp, err := os.CreateTemp("", "nasindex-fake-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := tmp.Write(node.content); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

func (f *fakeClient) CleanupTemp(local string) error {
	return os.Remove(local)
}

var _ SMBClient = (*fakeClient)(nil)

type fakeSourceLister struct {
	sources []smbfs.Source
}

func (f fakeSourceLister) SMBSources() []smbfs.Source { return f.sources }
