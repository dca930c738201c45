package filesystem

import (
	"slices"
	"strings"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// Kind tags a [Node] as a directory or a file
type Kind uint8

const (
	DirKind Kind = iota
	FileKind
)

func (k Kind) String() string {
	switch k {
	case DirKind:
		return "dir"
	case FileKind:
		return "file"
	default:
		return "unknown"
	}
}

// Node is a directory or file in the tree. Mutable fields are guarded by
// the owning [FileSystem]'s lock; use the exported accessors from outside
// the package.
type Node struct {
	id       uint64 // Registry ID and FUSE inode number; immutable
	kind     Kind   // immutable
	name     string
	parent   *Node
	children []*Node // most-recent-first
	lines    []string
	attr     *fuse.Attr
	tree     *FileSystem
}

// ID returns the node's stable registry ID
func (n *Node) ID() uint64 {
	return n.id
}

func (n *Node) Kind() Kind {
	return n.kind
}

func (n *Node) IsDir() bool {
	return n.kind == DirKind
}

// Name returns the node's name; "" for the root.
func (n *Node) Name() string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.name
}

// Parent returns the parent directory or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.parent
}

// Path returns the absolute path of the node. The root renders as "/".
func (n *Node) Path() string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.pathLocked()
}

// See [Node.Path]
func (n *Node) pathLocked() string {
	var names []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		names = append(names, cur.name)
	}
	if len(names) == 0 {
		return "/"
	}
	slices.Reverse(names)
	return "/" + strings.Join(names, "/")
}

// findChildLocked scans children for an exact name match.
func (n *Node) findChildLocked(name string) (*Node, bool) {
	if n.kind != DirKind {
		return nil, false
	}
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// linkFrontLocked makes child the newest child of n.
// Caller must have verified name uniqueness.
func (n *Node) linkFrontLocked(child *Node) {
	n.children = slices.Insert(n.children, 0, child)
	child.parent = n
	n.touchLocked()
}

// unlinkLocked removes n from its parent, keeping sibling order.
// The node is not re-parented.
func (n *Node) unlinkLocked() {
	p := n.parent
	if p == nil {
		return
	}
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
	p.touchLocked()
}

// isAncestorLocked reports whether candidate is n or on n's parent chain.
func (n *Node) isAncestorLocked(candidate *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == candidate {
			return true
		}
	}
	return false
}
