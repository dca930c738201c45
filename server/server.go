package server

import (
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Server exposes a live tree as a read-only FUSE mount
type Server struct {
	fs     *filesystem.FileSystem
	server *fuse.Server
}

// New wraps tree; mount options come from the tree's config.
func New(tree *filesystem.FileSystem) *Server {
	return &Server{fs: tree}
}

// Serve mounts the tree at mountPoint and returns once the kernel has the mount.
func (s *Server) Serve(mountPoint string) error {
	cfg := s.fs.Config()
	raw := NewFuseRaw(s.fs)
	srv, err := fuse.NewServer(raw, mountPoint, &fuse.MountOptions{
		Name:               cfg.Name,
		FsName:             cfg.FsName,
		Debug:              cfg.Debug || cfg.LogLvl == util.TraceLevel,
		Logger:             util.NewLogLogger("FuseServer", util.DebugLevel),
		Options:            []string{"ro"},
		DisableReadDirPlus: true,
	})
	if err != nil {
		return err
	}
	s.server = srv

	go srv.Serve()
	return srv.WaitMount()
}

func (s *Server) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted.
func (s *Server) Wait() {
	if s.server != nil {
		s.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	if s.server == nil {
		return nil
	}
	return s.server.Unmount()
}
