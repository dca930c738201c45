package filesystem

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/brettbedarf/treefs/config"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.MaxNameLen = 8
	return cfg
}

func TestNewFS(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig())

	require.NotNil(t, fs)
	assert.Equal(t, 1, fs.NodeCount())
	assert.Equal(t, 8, fs.Config().MaxNameLen)

	root, ok := fs.Lookup(fuse.FUSE_ROOT_ID)
	require.True(t, ok)
	assert.Equal(t, fs.Root(), root)
}

func TestFileSystem_Lookup(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	a := mkdir(t, fs, fs.Root(), "a")
	f := touch(t, fs, a, "f")

	got, ok := fs.Lookup(f.ID())
	require.True(t, ok)
	assert.Equal(t, f, got)

	_, ok = fs.Lookup(999)
	assert.False(t, ok)
	assert.Equal(t, 3, fs.NodeCount())
}

func TestFileSystem_IDsAreUnique(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	seen := map[uint64]bool{fs.Root().ID(): true}
	for _, name := range []string{"a", "b", "c", "d"} {
		n := mkdir(t, fs, fs.Root(), name)
		assert.False(t, seen[n.ID()], "ID %d reused", n.ID())
		seen[n.ID()] = true
	}
}

func TestFileSystem_Reset(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	oldRoot := fs.Root()
	a := mkdir(t, fs, oldRoot, "a")
	f := touch(t, fs, a, "f", "x", "y")

	fs.Reset()

	root := fs.Root()
	assert.NotSame(t, oldRoot, root)
	assert.Equal(t, uint64(fuse.FUSE_ROOT_ID), root.ID())
	assert.Equal(t, 1, fs.NodeCount(), "only the new root stays registered")
	assert.Empty(t, childNames(t, fs, root))

	_, ok := fs.Lookup(f.ID())
	assert.False(t, ok, "released nodes leave the registry")
	assert.Nil(t, a.Parent())
	count, err := fs.LineCount(f)
	require.NoError(t, err)
	assert.Zero(t, count, "file lines are released")

	// IDs keep increasing after a reset
	b := mkdir(t, fs, root, "b")
	assert.Greater(t, b.ID(), f.ID())
}

func TestFileSystem_ValidateName(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig())

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"plain", "a.txt", nil},
		{"at_limit", "12345678", nil},
		{"spaces", "my file", nil},
		{"empty", "", ErrInvalidName},
		{"slash", "a/b", ErrInvalidName},
		{"dot", ".", ErrInvalidName},
		{"dotdot", "..", ErrInvalidName},
		{"newline", "a\nb", ErrInvalidName},
		{"trailing_space", "a ", ErrInvalidName},
		{"too_long", "123456789", ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := fs.validateName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileSystem_UnlimitedNameLen(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.MaxNameLen = 0
	fs := NewFS(cfg)

	long := strings.Repeat("x", 4096)
	d := mkdir(t, fs, fs.Root(), long)

	got, err := fs.Resolve(nil, "/"+long)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestFileSystem_Attr(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	root := fs.Root()
	a := mkdir(t, fs, root, "a")
	mkdir(t, fs, a, "sub")
	f := touch(t, fs, a, "f", "hello", "")

	t.Run("File", func(t *testing.T) {
		t.Parallel()
		attr := fs.Attr(f)
		assert.Equal(t, f.ID(), attr.Ino)
		assert.Equal(t, uint32(fuse.S_IFREG|0o444), attr.Mode)
		assert.Equal(t, uint64(len("hello\n\n")), attr.Size)
		assert.Equal(t, uint64(1), attr.Blocks)
		assert.Equal(t, uint32(1), attr.Nlink)
	})
	t.Run("Directory", func(t *testing.T) {
		t.Parallel()
		attr := fs.Attr(a)
		assert.Equal(t, uint32(fuse.S_IFDIR|0o555), attr.Mode)
		assert.Equal(t, uint32(3), attr.Nlink, "2 plus one per subdirectory")
		assert.Zero(t, attr.Size)
	})
}

func TestFileSystem_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	a := mkdir(t, fs, fs.Root(), "a")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := fs.CreateFile(a, "f"+string(rune('0'+i)))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := fs.Resolve(nil, "/a")
			assert.NoError(t, err)
			_, err = fs.ListChildren(a)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := fs.ListChildren(a)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestFileSystem_Walk(t *testing.T) {
	t.Parallel()

	fs := NewFS(nil)
	root := fs.Root()
	a := mkdir(t, fs, root, "a")
	touch(t, fs, a, "x")
	touch(t, fs, a, "y")
	mkdir(t, fs, root, "b")

	var paths []string
	err := fs.Walk(func(n *Node, path string, lines []string) error {
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/a", "/a/x", "/a/y", "/b"}, paths,
		"pre-order, siblings oldest first")

	stop := errors.New("stop")
	visited := 0
	err = fs.Walk(func(n *Node, path string, lines []string) error {
		visited++
		if path == "/a" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}
