package filesystem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brettbedarf/treefs/internal/util"
)

// Entry is one row of a directory listing
type Entry struct {
	ID   uint64
	Name string
	Kind Kind
}

// CreateDirectory links a new empty directory called name under cwd.
func (fs *FileSystem) CreateDirectory(cwd *Node, name string) (*Node, error) {
	logger := util.GetLogger("FS.CreateDirectory")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkNewChildLocked(cwd, name); err != nil {
		return nil, err
	}
	if _, ok := cwd.findChildLocked(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrNameCollision, name)
	}

	node := fs.newNode(DirKind, name)
	fs.linkLocked(cwd, node)
	logger.Debug().Str("path", node.pathLocked()).Uint64("id", node.id).Msg("Created directory")
	return node, nil
}

// CreateFile links a new empty file called name under cwd. If a file with
// that name already exists it is returned unchanged; a directory with that
// name is a collision.
func (fs *FileSystem) CreateFile(cwd *Node, name string) (*Node, error) {
	logger := util.GetLogger("FS.CreateFile")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkNewChildLocked(cwd, name); err != nil {
		return nil, err
	}
	if existing, ok := cwd.findChildLocked(name); ok {
		if existing.kind == FileKind {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: directory %s", ErrNameCollision, name)
	}

	node := fs.newNode(FileKind, name)
	fs.linkLocked(cwd, node)
	logger.Debug().Str("path", node.pathLocked()).Uint64("id", node.id).Msg("Created file")
	return node, nil
}

func (fs *FileSystem) checkNewChildLocked(parent *Node, name string) error {
	if parent == nil || parent.kind != DirKind {
		return ErrInvalidParent
	}
	return fs.validateName(name)
}

// Move relinks item as the newest child of newParent. newName renames the
// item on the way when it is a valid name; otherwise the current name is kept.
// Moving a node into itself or its own subtree fails with [ErrCyclicMove].
// The tree is unchanged on any error.
func (fs *FileSystem) Move(item, newParent *Node, newName string) error {
	logger := util.GetLogger("FS.Move")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if item == nil || newParent == nil || newParent.kind != DirKind {
		return ErrInvalidParent
	}
	if newParent.isAncestorLocked(item) {
		return fmt.Errorf("%w: %s into %s", ErrCyclicMove, item.pathLocked(), newParent.pathLocked())
	}

	finalName := item.name
	if newName != "" {
		err := fs.validateName(newName)
		switch {
		case err == nil:
			finalName = newName
		case errors.Is(err, ErrTooLong):
			return err
		}
	}
	if _, ok := newParent.findChildLocked(finalName); ok {
		return fmt.Errorf("%w: %s in %s", ErrNameCollision, finalName, newParent.pathLocked())
	}

	from := item.pathLocked()
	item.unlinkLocked()
	item.name = finalName
	newParent.linkFrontLocked(item)
	logger.Debug().Str("from", from).Str("to", item.pathLocked()).Msg("Moved node")
	return nil
}

// Rename changes node's name in place. Renaming to the current name is a no-op.
func (fs *FileSystem) Rename(node *Node, newName string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if node == nil {
		return ErrInvalidParent
	}
	if err := fs.validateName(newName); err != nil {
		return err
	}
	if node.parent == nil {
		return fmt.Errorf("%w: the root cannot be renamed", ErrInvalidParent)
	}
	if newName == node.name {
		return nil
	}
	if _, ok := node.parent.findChildLocked(newName); ok {
		return fmt.Errorf("%w: %s", ErrNameCollision, newName)
	}
	node.name = newName
	node.parent.touchLocked()
	return nil
}

// MkdirAll walks the absolute path p from the root, creating every missing
// directory along it, and returns the leaf. It is equivalent to `mkdir -p`:
// existing directories are reused and an existing leaf is not an error.
func (fs *FileSystem) MkdirAll(p string) (*Node, error) {
	logger := util.GetLogger("FS.MkdirAll")

	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidName, p)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	cur := fs.root
	newCnt := 0
	for _, name := range strings.Split(p, "/") {
		if name == "" {
			continue
		}
		if child, ok := cur.findChildLocked(name); ok {
			if child.kind != DirKind {
				return nil, fmt.Errorf("%w: %s", ErrPathThroughFile, child.pathLocked())
			}
			cur = child
			continue
		}
		if err := fs.validateName(name); err != nil {
			return nil, err
		}
		node := fs.newNode(DirKind, name)
		fs.linkLocked(cur, node)
		newCnt++
		cur = node
	}
	if newCnt > 0 {
		logger.Debug().Str("path", p).Int("created", newCnt).Msg("Created missing directories")
	}
	return cur, nil
}

// ListChildren returns dir's children, most recently linked first.
func (fs *FileSystem) ListChildren(dir *Node) ([]Entry, error) {
	if dir == nil {
		return nil, ErrInvalidParent
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if dir.kind != DirKind {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParent, dir.pathLocked())
	}
	entries := make([]Entry, 0, len(dir.children))
	for _, c := range dir.children {
		entries = append(entries, Entry{ID: c.id, Name: c.name, Kind: c.kind})
	}
	return entries, nil
}

// Walk visits every node in pre-order, siblings oldest-first, under the read
// lock. fn must not call back into the FileSystem or retain lines.
// Returning an error stops the walk.
func (fs *FileSystem) Walk(fn func(n *Node, path string, lines []string) error) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return walkLocked(fs.root, fn)
}

func walkLocked(n *Node, fn func(n *Node, path string, lines []string) error) error {
	if err := fn(n, n.pathLocked(), n.lines); err != nil {
		return err
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if err := walkLocked(n.children[i], fn); err != nil {
			return err
		}
	}
	return nil
}
