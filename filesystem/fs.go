package filesystem

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// FileSystem owns the node tree. A single RWMutex guards every node's
// mutable state: mutators hold it exclusively, readers share it.
type FileSystem struct {
	cfg          *config.Config
	root         *Node                     // Root of node tree
	lastIno      atomic.Uint64             // Last Node ID assigned; never reused, even across Reset
	nodeRegistry *xsync.Map[uint64, *Node] // maps Node IDs to linked Nodes
	mu           sync.RWMutex
}

// NewFS returns an empty tree. A nil cfg uses [config.NewDefaultConfig].
func NewFS(cfg *config.Config) *FileSystem {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	fs := &FileSystem{
		cfg:          cfg,
		nodeRegistry: xsync.NewMap[uint64, *Node](),
	}
	fs.lastIno.Store(fuse.FUSE_ROOT_ID)
	fs.root = fs.newRoot()
	return fs
}

func (fs *FileSystem) newRoot() *Node {
	root := &Node{
		id:   fuse.FUSE_ROOT_ID,
		kind: DirKind,
		attr: newDefaultAttr(fuse.FUSE_ROOT_ID, DirKind),
		tree: fs,
	}
	fs.nodeRegistry.Store(root.id, root)
	return root
}

// newNode allocates a detached node with a fresh ID.
// It is registered once linked.
func (fs *FileSystem) newNode(kind Kind, name string) *Node {
	id := fs.lastIno.Add(1)
	return &Node{
		id:   id,
		kind: kind,
		name: name,
		attr: newDefaultAttr(id, kind),
		tree: fs,
	}
}

// linkLocked links child at the front of parent and registers it
func (fs *FileSystem) linkLocked(parent, child *Node) {
	parent.linkFrontLocked(child)
	fs.nodeRegistry.Store(child.id, child)
}

func (fs *FileSystem) Root() *Node {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.root
}

// Config returns the configuration the tree was built with
func (fs *FileSystem) Config() *config.Config {
	return fs.cfg
}

// Lookup returns the linked node registered under id
func (fs *FileSystem) Lookup(id uint64) (*Node, bool) {
	return fs.nodeRegistry.Load(id)
}

// NodeCount returns the number of linked nodes including the root
func (fs *FileSystem) NodeCount() int {
	return fs.nodeRegistry.Size()
}

// FindChild returns dir's child called name. It reports false if dir is not
// a directory or has no such child.
func (fs *FileSystem) FindChild(dir *Node, name string) (*Node, bool) {
	if dir == nil {
		return nil, false
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return dir.findChildLocked(name)
}

// IsAncestor reports whether candidate is node itself or one of its ancestors.
func (fs *FileSystem) IsAncestor(candidate, node *Node) bool {
	if candidate == nil || node == nil {
		return false
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return node.isAncestorLocked(candidate)
}

// Reset tears the whole tree down and installs an empty root.
// Nodes are released post-order, children before their parent.
func (fs *FileSystem) Reset() {
	logger := util.GetLogger("FS.Reset")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	released := fs.releaseLocked(fs.root)
	fs.root = fs.newRoot()
	logger.Debug().Int("released", released).Msg("Tree reset")
}

// releaseLocked releases n's subtree and returns the number of nodes released
func (fs *FileSystem) releaseLocked(n *Node) int {
	released := 0
	for _, c := range n.children {
		released += fs.releaseLocked(c)
	}
	n.children = nil
	n.lines = nil
	n.parent = nil
	fs.nodeRegistry.Delete(n.id)
	return released + 1
}

// validateName checks a name for a new or renamed node. A trailing space is
// refused because dump headers end in " <count>".
func (fs *FileSystem) validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\n\r") ||
		strings.HasSuffix(name, " ") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return fs.checkLen(name)
}

// checkLen enforces the configured segment limit; 0 disables it
func (fs *FileSystem) checkLen(segment string) error {
	if limit := fs.cfg.MaxNameLen; limit > 0 && len(segment) > limit {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLong, len(segment), limit)
	}
	return nil
}
