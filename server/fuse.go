package server

import (
	"syscall"
	"time"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseRaw implements the low-level FUSE wire protocol over a live tree.
// Kernel node IDs are the tree's node IDs, so every request is a registry
// lookup. The view is read-only; anything not implemented here falls
// through to the default ENOSYS responses.
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	fs           *filesystem.FileSystem
	server       *fuse.Server
	attrTimeout  time.Duration
	entryTimeout time.Duration
}

func NewFuseRaw(tree *filesystem.FileSystem) *FuseRaw {
	cfg := tree.Config()
	return &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            tree,
		attrTimeout:   seconds(cfg.AttrTimeout),
		entryTimeout:  seconds(cfg.EntryTimeout),
	}
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		s = config.DefaultAttrTimeout
	}
	return time.Duration(s * float64(time.Second))
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Msg("FUSE unmounted")
}

func (r *FuseRaw) String() string {
	return "treefs"
}

// Access grants read and execute everywhere and refuses writes.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	if _, ok := r.fs.Lookup(input.NodeId); !ok {
		return fuse.ENOENT
	}
	if input.Mask&2 != 0 { // W_OK
		return fuse.Status(syscall.EROFS)
	}
	return fuse.OK
}

// Lookup resolves name inside the directory header.NodeId.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	parent, ok := r.fs.Lookup(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	if !parent.IsDir() {
		return fuse.ENOTDIR
	}
	child, ok := r.fs.FindChild(parent, name)
	if !ok {
		return fuse.ENOENT
	}

	out.NodeId = child.ID()
	out.Attr = r.fs.Attr(child)
	out.SetAttrTimeout(r.attrTimeout)
	out.SetEntryTimeout(r.entryTimeout)
	return fuse.OK
}

// Forget is a no-op: node lifetime belongs to the tree, not the kernel.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	n, ok := r.fs.Lookup(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	out.Attr = r.fs.Attr(n)
	out.SetTimeout(r.attrTimeout)
	return fuse.OK
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	n, ok := r.fs.Lookup(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	if !n.IsDir() {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

// dirEntries lists "." and ".." followed by the directory's children
func (r *FuseRaw) dirEntries(id uint64) ([]fuse.DirEntry, fuse.Status) {
	dir, ok := r.fs.Lookup(id)
	if !ok {
		return nil, fuse.ENOENT
	}
	children, err := r.fs.ListChildren(dir)
	if err != nil {
		return nil, fuse.ENOTDIR
	}

	parentID := dir.ID()
	if p := dir.Parent(); p != nil {
		parentID = p.ID()
	}
	entries := make([]fuse.DirEntry, 0, len(children)+2)
	entries = append(entries,
		fuse.DirEntry{Name: ".", Mode: fuse.S_IFDIR, Ino: dir.ID()},
		fuse.DirEntry{Name: "..", Mode: fuse.S_IFDIR, Ino: parentID},
	)
	for _, c := range children {
		mode := uint32(fuse.S_IFREG)
		if c.Kind == filesystem.DirKind {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name, Mode: mode, Ino: c.ID})
	}
	return entries, fuse.OK
}

// ReadDir fills out starting at input.Offset until the buffer is full. The
// kernel calls again with the next offset.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")

	entries, st := r.dirEntries(input.NodeId)
	if !st.Ok() {
		return st
	}
	added := 0
	for i := int(input.Offset); i < len(entries); i++ {
		if !out.AddDirEntry(entries[i]) {
			break
		}
		added++
	}
	logger.Trace().Uint64("dir", input.NodeId).Uint64("offset", input.Offset).Int("added", added).Msg("ReadDir served")
	return fuse.OK
}

func (r *FuseRaw) ReleaseDir(input *fuse.ReleaseIn) {}

// Open admits read-only opens of files. Content is served with direct I/O
// because sizes change as the tree is edited.
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	n, ok := r.fs.Lookup(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	if n.IsDir() {
		return fuse.Status(syscall.EISDIR)
	}
	if input.Flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return fuse.Status(syscall.EROFS)
	}
	out.OpenFlags |= fuse.FOPEN_DIRECT_IO
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	n, ok := r.fs.Lookup(input.NodeId)
	if !ok {
		return nil, fuse.ENOENT
	}
	content, err := r.fs.Content(n)
	if err != nil {
		return nil, fuse.Status(syscall.EISDIR)
	}

	start := min(int(input.Offset), len(content))
	end := min(start+int(input.Size), len(content))
	return fuse.ReadResultData(content[start:end]), fuse.OK
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.Bsize = 4096
	out.NameLen = uint32(r.fs.Config().MaxNameLen)
	if out.NameLen == 0 {
		out.NameLen = 255
	}
	out.Files = uint64(r.fs.NodeCount())
	return fuse.OK
}
