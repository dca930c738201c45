package filesystem

import (
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// Modes reported for the read-only FUSE view
const (
	dirMode  = uint32(fuse.S_IFDIR | 0o555)
	fileMode = uint32(fuse.S_IFREG | 0o444)
)

// Attr returns a snapshot of the node's fuse attributes with Size, Blocks
// and Nlink derived from the current content.
func (fs *FileSystem) Attr(n *Node) fuse.Attr {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	attr := *n.attr
	switch n.kind {
	case FileKind:
		attr.Size = uint64(contentSize(n.lines))
		attr.Nlink = 1
	case DirKind:
		attr.Nlink = 2
		for _, c := range n.children {
			if c.kind == DirKind {
				attr.Nlink++
			}
		}
	}
	attr.Blocks = (attr.Size + 511) / 512
	return attr
}

// touchLocked bumps modification and change times
func (n *Node) touchLocked() {
	now := time.Now()
	n.attr.Mtime = uint64(now.Unix())
	n.attr.Mtimensec = uint32(now.Nanosecond())
	n.attr.Ctime = n.attr.Mtime
	n.attr.Ctimensec = n.attr.Mtimensec
}

// contentSize is the byte length of lines rendered with a trailing newline each
func contentSize(lines []string) int {
	size := 0
	for _, l := range lines {
		size += len(l) + 1
	}
	return size
}

// newDefaultAttr returns the default attributes for a new node of kind
func newDefaultAttr(ino uint64, kind Kind) *fuse.Attr {
	now := time.Now()
	mode := fileMode
	if kind == DirKind {
		mode = dirMode
	}
	return &fuse.Attr{
		Ino:   ino,
		Mode:  mode,
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     uint64(now.Unix()),
		Mtime:     uint64(now.Unix()),
		Ctime:     uint64(now.Unix()),
		Atimensec: uint32(now.Nanosecond()),
		Mtimensec: uint32(now.Nanosecond()),
		Ctimensec: uint32(now.Nanosecond()),
		Blksize:   4096, // preferred size for fs ops
	}
}
