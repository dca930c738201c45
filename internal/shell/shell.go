// Package shell runs the interactive command loop over a session.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/persist"
	"github.com/brettbedarf/treefs/session"
)

// loadTerminator ends a dump typed after a bare `load`
const loadTerminator = "."

// command receives everything after the command word, trimmed of
// surrounding spaces
type command struct {
	usage string
	run   func(sh *Shell, args string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":     {"ls", (*Shell).ls},
		"cd":     {"cd <path>", (*Shell).cd},
		"pwd":    {"pwd", (*Shell).pwd},
		"mkdir":  {"mkdir <path>", (*Shell).mkdir},
		"touch":  {"touch <path>", (*Shell).touch},
		"mv":     {"mv <source> <destination>", (*Shell).mv},
		"rename": {"rename <path> <new-name>", (*Shell).rename},
		"cat":    {"cat <file>", (*Shell).cat},
		"edit":   {"edit <file>", (*Shell).edit},
		"load":   {"load [dump]", (*Shell).load},
		"open":   {"open <dump>", (*Shell).open},
		"help":   {"help", (*Shell).help},
	}
}

// Shell reads commands line by line and prints results to out. With
// interactive set, prompts are printed before every read.
type Shell struct {
	sess        *session.Session
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func New(sess *session.Session, in io.Reader, out io.Writer, interactive bool) *Shell {
	return &Shell{
		sess:        sess,
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// readLine returns the next input line without its terminator. ok is false
// at end of input.
func (sh *Shell) readLine() (line string, ok bool, err error) {
	s, err := sh.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if err != nil && s == "" {
		return "", false, nil
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}

func (sh *Shell) prompt(p string) {
	if sh.interactive {
		fmt.Fprint(sh.out, p)
	}
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *Shell) printErr(err error) {
	sh.printf("Error: %v\n", err)
}

// Run processes commands until exit or end of input. Only exit writes the
// final dump; end of input just stops. The returned error is an input
// failure; command failures are printed and never stop the loop.
func (sh *Shell) Run() error {
	logger := util.GetLogger("Shell.Run")
	logger.Debug().Str("session", sh.sess.ID()).Bool("interactive", sh.interactive).Msg("Shell started")

	for {
		sh.prompt(sh.sess.Prompt())
		line, ok, err := sh.readLine()
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		if !ok {
			logger.Debug().Msg("End of input")
			return nil
		}

		name, args := parseCommand(line)
		if name == "" {
			continue
		}
		if name == "exit" {
			if err := sh.sess.Exit(sh.out); err != nil {
				sh.printErr(err)
			}
			return nil
		}

		cmd, found := commands[name]
		if !found {
			sh.printf("Unknown command: %s\n", name)
			continue
		}
		logger.Trace().Str("cmd", name).Str("args", args).Msg("Dispatching")
		if err := cmd.run(sh, args); err != nil {
			if errors.Is(err, errUsage) {
				sh.printf("Usage: %s\n", cmd.usage)
				continue
			}
			sh.printErr(err)
		}
	}
}

// parseCommand splits a line into the command word and its arguments.
// Single-argument commands take the whole rest of the line, so paths may
// hold spaces.
func parseCommand(line string) (name, args string) {
	name, rest, _ := strings.Cut(strings.Trim(line, " "), " ")
	return name, strings.TrimLeft(rest, " ")
}

// splitArgs splits two-argument commands at the first space; only the second
// argument may hold spaces.
func splitArgs(args string) (arg1, arg2 string) {
	arg1, arg2, _ = strings.Cut(args, " ")
	return arg1, strings.TrimLeft(arg2, " ")
}

var errUsage = errors.New("usage")

func (sh *Shell) ls(_ string) error {
	entries, err := sh.sess.Ls()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Kind == filesystem.DirKind {
			sh.printf("%s/\n", e.Name)
		} else {
			sh.printf("%s\n", e.Name)
		}
	}
	return nil
}

func (sh *Shell) cd(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	return sh.sess.Cd(arg1)
}

func (sh *Shell) pwd(_ string) error {
	sh.printf("%s\n", sh.sess.Cwd().Path())
	return nil
}

func (sh *Shell) mkdir(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	_, err := sh.sess.Mkdir(arg1)
	return err
}

func (sh *Shell) touch(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	_, err := sh.sess.Touch(arg1)
	return err
}

func (sh *Shell) mv(args string) error {
	arg1, arg2 := splitArgs(args)
	if arg1 == "" || arg2 == "" {
		return errUsage
	}
	return sh.sess.Mv(arg1, arg2)
}

func (sh *Shell) rename(args string) error {
	arg1, arg2 := splitArgs(args)
	if arg1 == "" || arg2 == "" {
		return errUsage
	}
	return sh.sess.Rename(arg1, arg2)
}

func (sh *Shell) cat(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	f, err := sh.sess.File(arg1)
	if err != nil {
		return err
	}
	for _, text := range sh.sess.FS().Lines(f) {
		sh.printf("%s\n", text)
	}
	return nil
}

func (sh *Shell) edit(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	return sh.sess.Edit(arg1, sh.runEditor)
}

// load merges a dump file, or without an argument the dump typed on the
// following lines up to a line holding only "." or end of input. A "." line
// counted as content by an F record does not end the input.
func (sh *Shell) load(arg1 string) error {
	if arg1 != "" {
		stats, err := sh.sess.LoadFile(arg1)
		if err != nil {
			return err
		}
		sh.printf("Loaded: %d directories, %d files\n", stats.Dirs, stats.Files)
		return nil
	}

	if sh.interactive {
		sh.printf("Enter dump records, end with a line holding only '%s'\n", loadTerminator)
	}
	var b strings.Builder
	pending := 0 // content lines still owed to the last F record
	for {
		line, ok, err := sh.readLine()
		if err != nil {
			return err
		}
		if !ok || (pending == 0 && line == loadTerminator) {
			break
		}
		if pending > 0 {
			pending--
		} else {
			pending = persist.ContentLines(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	stats, err := sh.sess.Load(strings.NewReader(b.String()))
	if err != nil {
		return err
	}
	sh.printf("Loaded: %d directories, %d files\n", stats.Dirs, stats.Files)
	return nil
}

func (sh *Shell) open(arg1 string) error {
	if arg1 == "" {
		return errUsage
	}
	existed, err := sh.sess.Open(arg1)
	if err != nil {
		return err
	}
	if existed {
		sh.printf("Opened: %s\n", arg1)
	} else {
		sh.printf("New file: %s\n", arg1)
	}
	return nil
}

func (sh *Shell) help(_ string) error {
	names := []string{"ls", "cd", "pwd", "mkdir", "touch", "mv", "rename", "cat", "edit", "load", "open", "help"}
	for _, n := range names {
		sh.printf("  %s\n", commands[n].usage)
	}
	sh.printf("  exit\n")
	sh.printf("A bare load reads records until a line holding only '%s' outside file content\n", loadTerminator)
	return nil
}
