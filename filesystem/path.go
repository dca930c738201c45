package filesystem

import (
	"fmt"
	"strings"
)

// Resolve interprets p against the tree. Paths starting with '/' start at the
// root; empty and relative paths start at cwd (a nil cwd means the root).
// Empty segments are skipped, "." stays put and ".." moves to the parent, which
// is a no-op at the root.
func (fs *FileSystem) Resolve(cwd *Node, p string) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolveLocked(cwd, p)
}

func (fs *FileSystem) resolveLocked(cwd *Node, p string) (*Node, error) {
	cur := cwd
	if cur == nil || strings.HasPrefix(p, "/") {
		cur = fs.root
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		if err := fs.checkLen(seg); err != nil {
			return nil, err
		}
		if cur.kind != DirKind {
			return nil, fmt.Errorf("%w: %s", ErrPathThroughFile, cur.pathLocked())
		}
		next, ok := cur.findChildLocked(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, seg)
		}
		cur = next
	}
	return cur, nil
}

// ResolveParent splits the last segment off p and resolves the rest, for
// commands that create or rename into a path that does not exist yet.
// Trailing slashes are ignored. A bare name resolves its parent as cwd.
func (fs *FileSystem) ResolveParent(cwd *Node, p string) (parent *Node, name string, err error) {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidName, p)
	}

	dirPath := ""
	i := strings.LastIndex(trimmed, "/")
	switch {
	case i == 0:
		dirPath = "/"
	case i > 0:
		dirPath = trimmed[:i]
	}
	name = trimmed[i+1:]

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	parent, err = fs.resolveLocked(cwd, dirPath)
	if err != nil {
		return nil, "", err
	}
	return parent, name, nil
}
