// Package session holds the state of one interactive run over a tree: the
// current directory, the dump the tree is persisted to, and the auto-save
// policy applied after every successful mutation.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/persist"
	"github.com/google/uuid"
)

// ErrNotDirectory indicates cd or mv targeted a file where a directory is required
var ErrNotDirectory = errors.New("not a directory")

// SaveError reports a failed save. The in-memory tree is unaffected and stays
// authoritative; the operation that triggered the save succeeded.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("cannot save to '%s': %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

type Session struct {
	id       string
	cfg      *config.Config
	fs       *filesystem.FileSystem
	store    persist.Store
	policy   persist.MergePolicy
	cwd      *filesystem.Node
	openPath string // dump named by open or restored at startup; "" if none
	logger   util.Logger
}

// New returns a session over an empty tree. A nil store uses [persist.NewFileStore].
func New(cfg *config.Config, store persist.Store) (*Session, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := persist.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = persist.NewFileStore()
	}

	id := uuid.NewString()
	tree := filesystem.NewFS(cfg)
	s := &Session{
		id:     id,
		cfg:    cfg,
		fs:     tree,
		store:  store,
		policy: policy,
		cwd:    tree.Root(),
		logger: util.GetLogger("Session").With().Str("session", id).Logger(),
	}
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// FS returns the tree the session operates on
func (s *Session) FS() *filesystem.FileSystem {
	return s.fs
}

func (s *Session) Cwd() *filesystem.Node {
	return s.cwd
}

// OpenPath returns the dump the session saves to on exit, or "" if none.
func (s *Session) OpenPath() string {
	return s.openPath
}

// Prompt renders the shell prompt for the current directory
func (s *Session) Prompt() string {
	return s.cwd.Path() + " $ "
}

// savePath is where auto-save writes: the open dump, else the default store path
func (s *Session) savePath() string {
	if s.openPath != "" {
		return s.openPath
	}
	return s.cfg.StorePath
}

// Restore loads the default store path into the tree if it exists and makes
// it the open dump. A missing dump is not an error.
func (s *Session) Restore() (bool, error) {
	path := s.cfg.StorePath
	if path == "" {
		return false, nil
	}
	data, err := s.store.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug().Str("path", path).Msg("No dump to restore")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", path, err)
	}
	s.openPath = path
	stats, err := persist.Deserialize(s.fs, bytes.NewReader(data), s.policy)
	if err != nil {
		return true, fmt.Errorf("restore %s: %w", path, err)
	}
	s.logger.Info().Str("path", path).Int("dirs", stats.Dirs).Int("files", stats.Files).Msg("Restored dump")
	return true, nil
}

// Open discards the current tree and makes path the open dump. If path
// exists its records are loaded; otherwise the tree starts empty and the
// dump is created on the next save. Open reports whether path existed.
func (s *Session) Open(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("%w: empty dump path", filesystem.ErrInvalidName)
	}
	s.fs.Reset()
	s.cwd = s.fs.Root()
	s.openPath = path

	data, err := s.store.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", path).Msg("Opened new dump")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := persist.Deserialize(s.fs, bytes.NewReader(data), s.policy); err != nil {
		return true, fmt.Errorf("open %s: %w", path, err)
	}
	s.logger.Info().Str("path", path).Int("nodes", s.fs.NodeCount()).Msg("Opened dump")
	return true, nil
}

// Load merges the records read from r into the current tree.
func (s *Session) Load(r io.Reader) (persist.Stats, error) {
	stats, err := persist.Deserialize(s.fs, r, s.policy)
	if err != nil {
		return stats, fmt.Errorf("load: %w", err)
	}
	return stats, nil
}

// LoadFile merges the dump at path into the current tree without changing
// the open dump.
func (s *Session) LoadFile(path string) (persist.Stats, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return persist.Stats{}, fmt.Errorf("load %s: %w", path, err)
	}
	stats, err := persist.Deserialize(s.fs, bytes.NewReader(data), s.policy)
	if err != nil {
		return stats, fmt.Errorf("load %s: %w", path, err)
	}
	return stats, nil
}

// Save writes the whole tree to the open dump, or to the default store path
// when nothing was opened.
func (s *Session) Save() error {
	path := s.savePath()
	data, err := persist.Marshal(s.fs)
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := s.store.Write(path, data); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Save failed")
		return &SaveError{Path: path, Err: err}
	}
	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Saved tree")
	return nil
}

func (s *Session) autoSave() error {
	if !s.cfg.AutoSave {
		return nil
	}
	return s.Save()
}

// Exit saves to the open dump, or dumps the tree to w when nothing was opened.
func (s *Session) Exit(w io.Writer) error {
	if s.openPath != "" {
		return s.Save()
	}
	return persist.Serialize(s.fs, w)
}

// Mkdir creates a directory at p, relative to the current directory unless
// absolute. The parent must exist.
func (s *Session) Mkdir(p string) (*filesystem.Node, error) {
	parent, name, err := s.fs.ResolveParent(s.cwd, p)
	if err != nil {
		return nil, err
	}
	dir, err := s.fs.CreateDirectory(parent, name)
	if err != nil {
		return nil, err
	}
	return dir, s.autoSave()
}

// Touch creates an empty file at p or returns the one already there.
func (s *Session) Touch(p string) (*filesystem.Node, error) {
	parent, name, err := s.fs.ResolveParent(s.cwd, p)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.CreateFile(parent, name)
	if err != nil {
		return nil, err
	}
	return f, s.autoSave()
}

// Mv moves src into the directory dst. If dst does not exist, src is moved
// under dst's parent and renamed to dst's last segment.
func (s *Session) Mv(src, dst string) error {
	item, err := s.fs.Resolve(s.cwd, src)
	if err != nil {
		return err
	}

	dest, err := s.fs.Resolve(s.cwd, dst)
	switch {
	case err == nil:
		if !dest.IsDir() {
			return fmt.Errorf("%w: destination %s", ErrNotDirectory, dest.Path())
		}
		err = s.fs.Move(item, dest, "")
	case errors.Is(err, filesystem.ErrNotFound):
		parent, name, perr := s.fs.ResolveParent(s.cwd, dst)
		if perr != nil {
			return perr
		}
		err = s.fs.Move(item, parent, name)
	}
	if err != nil {
		return err
	}
	return s.autoSave()
}

// Rename renames the node at p in place.
func (s *Session) Rename(p, newName string) error {
	n, err := s.fs.Resolve(s.cwd, p)
	if err != nil {
		return err
	}
	if err := s.fs.Rename(n, newName); err != nil {
		return err
	}
	return s.autoSave()
}

// Cd changes the current directory.
func (s *Session) Cd(p string) error {
	n, err := s.fs.Resolve(s.cwd, p)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, n.Path())
	}
	s.cwd = n
	return nil
}

// Ls lists the current directory, most recently linked first.
func (s *Session) Ls() ([]filesystem.Entry, error) {
	return s.fs.ListChildren(s.cwd)
}

// File resolves p to a file.
func (s *Session) File(p string) (*filesystem.Node, error) {
	n, err := s.fs.Resolve(s.cwd, p)
	if err != nil {
		return nil, err
	}
	if n.IsDir() {
		return nil, fmt.Errorf("%w: %s", filesystem.ErrNotFile, n.Path())
	}
	return n, nil
}

// Edit runs fn on the file at p and auto-saves afterwards whatever fn
// returns, so edits are kept even when the editor is abandoned.
func (s *Session) Edit(p string, fn func(fs *filesystem.FileSystem, f *filesystem.Node) error) error {
	f, err := s.File(p)
	if err != nil {
		return err
	}
	editErr := fn(s.fs, f)
	saveErr := s.autoSave()
	return errors.Join(editErr, saveErr)
}
