// Package persist converts a tree to and from its flat text dump and stores
// dumps on disk.
//
// The dump has one record per node:
//
//	D <absolute-path>
//	F <absolute-path> <lineCount>
//	<lineCount raw lines>
//
// There is no versioning, checksum, or escaping.
package persist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
)

// maxLineCount bounds the line count of a single F record
const maxLineCount = 1 << 24

// ErrFormat is wrapped by every [FormatError]
var ErrFormat = errors.New("malformed dump")

// FormatError reports a record that aborted a load. Records before Line
// were applied and stay applied.
type FormatError struct {
	Line int    // 1-based line number in the stream
	Msg  string // what was wrong with the record
	Err  error  // structural cause from the tree, if any
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// MergePolicy decides what happens when a loaded F record names a file that
// already exists in the tree.
type MergePolicy int

const (
	// MergeAppend appends the loaded lines to the existing ones
	MergeAppend MergePolicy = iota
	// MergeReplace replaces the existing lines with the loaded ones
	MergeReplace
)

func (p MergePolicy) String() string {
	switch p {
	case MergeAppend:
		return config.MergeAppend
	case MergeReplace:
		return config.MergeReplace
	default:
		return "unknown"
	}
}

// ParseMergePolicy maps a config value onto a [MergePolicy]
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case config.MergeAppend, "":
		return MergeAppend, nil
	case config.MergeReplace:
		return MergeReplace, nil
	default:
		return 0, fmt.Errorf("unknown merge policy: %q", s)
	}
}

// Stats counts the records applied by [Deserialize]
type Stats struct {
	Dirs  int
	Files int
	Lines int
}

// Serialize writes every non-root node of fs to w in pre-order, siblings
// oldest-first. Loading the output into an empty tree reproduces the same
// sibling order, so serializing again yields identical bytes.
func Serialize(fs *filesystem.FileSystem, w io.Writer) error {
	bw := bufio.NewWriter(w)
	err := fs.Walk(func(n *filesystem.Node, path string, lines []string) error {
		if path == "/" {
			return nil
		}
		if n.IsDir() {
			_, err := fmt.Fprintf(bw, "D %s\n", path)
			return err
		}
		if _, err := fmt.Fprintf(bw, "F %s %d\n", path, len(lines)); err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := bw.WriteString(l); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal returns the dump of fs. See [Serialize].
func Marshal(fs *filesystem.FileSystem) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(fs, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lineReader yields lines without their terminator, tracking line numbers
type lineReader struct {
	r    *bufio.Reader
	line int
}

func (lr *lineReader) next() (string, bool, error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if err != nil && s == "" {
		return "", false, nil
	}
	lr.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}

// Deserialize applies the records in r to fs. Directories named by records
// are created as needed. Lines that do not start with D or F are ignored.
// A malformed record stops the load with a [*FormatError]; everything
// applied before it stays in the tree.
func Deserialize(fs *filesystem.FileSystem, r io.Reader, policy MergePolicy) (Stats, error) {
	logger := util.GetLogger("Persist.Deserialize")

	var stats Stats
	lr := &lineReader{r: bufio.NewReader(r)}
	for {
		line, ok, err := lr.next()
		if err != nil {
			return stats, fmt.Errorf("read dump: %w", err)
		}
		if !ok {
			break
		}
		if line == "" || (line[0] != 'D' && line[0] != 'F') {
			continue
		}
		if len(line) < 2 || line[1] != ' ' {
			return stats, &FormatError{Line: lr.line, Msg: "missing separator after record tag"}
		}

		switch line[0] {
		case 'D':
			if err := applyDir(fs, lr.line, line[2:]); err != nil {
				return stats, err
			}
			stats.Dirs++
		case 'F':
			n, err := applyFile(fs, lr, line[2:], policy)
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.Lines += n
		}
	}
	logger.Debug().
		Int("dirs", stats.Dirs).
		Int("files", stats.Files).
		Int("lines", stats.Lines).
		Str("policy", policy.String()).
		Msg("Dump loaded")
	return stats, nil
}

func applyDir(fs *filesystem.FileSystem, lineNo int, path string) error {
	if !strings.HasPrefix(path, "/") {
		return &FormatError{Line: lineNo, Msg: fmt.Sprintf("path %q is not absolute", path)}
	}
	if _, err := fs.MkdirAll(path); err != nil {
		return &FormatError{Line: lineNo, Msg: "cannot create directory " + path, Err: err}
	}
	return nil
}

// applyFile handles one F record header plus its content lines and
// returns the number of lines read.
func applyFile(fs *filesystem.FileSystem, lr *lineReader, header string, policy MergePolicy) (int, error) {
	lineNo := lr.line
	path, count, err := parseFileHeader(header)
	if err != nil {
		return 0, &FormatError{Line: lineNo, Msg: err.Error()}
	}
	if !strings.HasPrefix(path, "/") {
		return 0, &FormatError{Line: lineNo, Msg: fmt.Sprintf("path %q is not absolute", path)}
	}

	slash := strings.LastIndex(path, "/")
	parentPath, name := path[:slash], path[slash+1:]
	if parentPath == "" {
		parentPath = "/"
	}
	parent, err := fs.MkdirAll(parentPath)
	if err != nil {
		return 0, &FormatError{Line: lineNo, Msg: "cannot create parent of " + path, Err: err}
	}
	f, err := fs.CreateFile(parent, name)
	if err != nil {
		return 0, &FormatError{Line: lineNo, Msg: "cannot create file " + path, Err: err}
	}

	lines := make([]string, 0, min(count, 1024))
	for range count {
		l, ok, err := lr.next()
		if err != nil {
			return 0, fmt.Errorf("read dump: %w", err)
		}
		if !ok {
			// EOF mid-record backfills the remaining lines as empty
			l = ""
		}
		lines = append(lines, l)
	}

	switch policy {
	case MergeReplace:
		err = fs.SetLines(f, lines)
	default:
		err = fs.AppendLines(f, lines)
	}
	if err != nil {
		return 0, &FormatError{Line: lineNo, Msg: "cannot store lines of " + path, Err: err}
	}
	return count, nil
}

// ContentLines returns how many raw content lines follow line in a dump: the
// count of a well-formed F record, else 0.
func ContentLines(line string) int {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, "F ") {
		return 0
	}
	_, count, err := parseFileHeader(line[2:])
	if err != nil {
		return 0
	}
	return count
}

// parseFileHeader splits "<path> <count>" at the last space. A header with no
// space is a path with zero lines. Spaces after the count or before it are
// padding.
func parseFileHeader(header string) (string, int, error) {
	header = strings.TrimRight(header, " ")
	i := strings.LastIndexByte(header, ' ')
	if i < 0 {
		return header, 0, nil
	}
	count, err := strconv.Atoi(header[i+1:])
	if err != nil || count < 0 {
		return "", 0, fmt.Errorf("invalid line count %q", header[i+1:])
	}
	if count > maxLineCount {
		return "", 0, fmt.Errorf("line count %d exceeds limit of %d", count, maxLineCount)
	}
	return strings.TrimRight(header[:i], " "), count, nil
}
