package filesystem

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Line numbers are 1-based and contiguous.

func fileCheckLocked(f *Node) error {
	if f == nil || f.kind != FileKind {
		return ErrNotFile
	}
	return nil
}

// checkLineText rejects newlines and a trailing CR, which a dump reload would
// strip. A CR inside the line is kept as content.
func checkLineText(text string) error {
	if strings.Contains(text, "\n") || strings.HasSuffix(text, "\r") {
		return ErrInvalidLine
	}
	return nil
}

func lineRangeErr(n, count int) error {
	return fmt.Errorf("%w: %d (file has %d lines)", ErrLineRange, n, count)
}

// AppendLine adds text after the last line of f.
func (fs *FileSystem) AppendLine(f *Node, text string) error {
	if err := checkLineText(text); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	f.lines = append(f.lines, text)
	f.touchLocked()
	return nil
}

// AppendLines adds lines after the last line of f. Nothing is added if any
// line is invalid.
func (fs *FileSystem) AppendLines(f *Node, lines []string) error {
	for _, l := range lines {
		if err := checkLineText(l); err != nil {
			return err
		}
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	f.lines = append(f.lines, lines...)
	f.touchLocked()
	return nil
}

// InsertBefore makes text line n of f, shifting the old line n down.
// n may be one past the last line, which appends.
func (fs *FileSystem) InsertBefore(f *Node, n int, text string) error {
	if err := checkLineText(text); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	if n < 1 || n > len(f.lines)+1 {
		return lineRangeErr(n, len(f.lines))
	}
	f.lines = slices.Insert(f.lines, n-1, text)
	f.touchLocked()
	return nil
}

// Replace overwrites line n of f.
func (fs *FileSystem) Replace(f *Node, n int, text string) error {
	if err := checkLineText(text); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	if n < 1 || n > len(f.lines) {
		return lineRangeErr(n, len(f.lines))
	}
	f.lines[n-1] = text
	f.touchLocked()
	return nil
}

// Delete removes line n of f.
func (fs *FileSystem) Delete(f *Node, n int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	if n < 1 || n > len(f.lines) {
		return lineRangeErr(n, len(f.lines))
	}
	f.lines = slices.Delete(f.lines, n-1, n)
	f.touchLocked()
	return nil
}

// SetLines replaces the whole content of f with a copy of lines.
func (fs *FileSystem) SetLines(f *Node, lines []string) error {
	for _, l := range lines {
		if err := checkLineText(l); err != nil {
			return err
		}
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fileCheckLocked(f); err != nil {
		return err
	}
	f.lines = slices.Clone(lines)
	f.touchLocked()
	return nil
}

// ReadLines returns a copy of f's lines.
func (fs *FileSystem) ReadLines(f *Node) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err := fileCheckLocked(f); err != nil {
		return nil, err
	}
	return slices.Clone(f.lines), nil
}

// LineCount returns the number of lines in f.
func (fs *FileSystem) LineCount(f *Node) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err := fileCheckLocked(f); err != nil {
		return 0, err
	}
	return len(f.lines), nil
}

// Lines lazily yields (line number, text) pairs of f. The read lock is taken
// for each step and released before yielding, so the loop body may edit f;
// iteration continues from the next line number. Yields nothing for directories.
func (fs *FileSystem) Lines(f *Node) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i := 0; ; i++ {
			fs.mu.RLock()
			if fileCheckLocked(f) != nil || i >= len(f.lines) {
				fs.mu.RUnlock()
				return
			}
			text := f.lines[i]
			fs.mu.RUnlock()

			if !yield(i+1, text) {
				return
			}
		}
	}
}

// Content renders f as bytes, one newline-terminated line each.
func (fs *FileSystem) Content(f *Node) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err := fileCheckLocked(f); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(contentSize(f.lines))
	for _, l := range f.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}
