package shell

import (
	"errors"
	"strconv"
	"strings"

	"github.com/brettbedarf/treefs/filesystem"
)

const editorHelp = "Editor (:p print, :a append, :i N insert, :r N replace, :d N delete, :wq save, :q! quit)"

// runEditor edits f in place until :wq, :q! or end of input. Every command
// applies immediately; :q! only leaves the editor.
func (sh *Shell) runEditor(tree *filesystem.FileSystem, f *filesystem.Node) error {
	if sh.interactive {
		sh.printf("%s\n", editorHelp)
	}
	for {
		sh.prompt("> ")
		line, ok, err := sh.readLine()
		if err != nil || !ok {
			return err
		}
		if !strings.HasPrefix(line, ":") {
			sh.printf("Use ':' commands\n")
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case ":wq", ":q!":
			return nil
		case ":p":
			for n, text := range tree.Lines(f) {
				sh.printf("%d: %s\n", n, text)
			}
		case ":a":
			if err := sh.editAppend(tree, f); err != nil {
				return err
			}
		case ":i", ":r", ":d":
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil || n <= 0 {
				sh.printf("Invalid line number: %q\n", strings.TrimSpace(arg))
				continue
			}
			if err := sh.editAt(tree, f, cmd, n); err != nil {
				return err
			}
		default:
			sh.printf("Unknown editor command: %s\n", cmd)
		}
	}
}

// readText prompts for the text of a line. ok is false at end of input.
func (sh *Shell) readText() (string, bool, error) {
	sh.prompt("text: ")
	return sh.readLine()
}

func (sh *Shell) editAppend(tree *filesystem.FileSystem, f *filesystem.Node) error {
	text, ok, err := sh.readText()
	if err != nil {
		return err
	}
	if !ok {
		sh.printf("EOF\n")
		return nil
	}
	if err := tree.AppendLine(f, text); err != nil {
		sh.printErr(err)
	}
	return nil
}

// editAt runs :i, :r or :d against line n. Range errors are reported before
// any text is read for :r and :d.
func (sh *Shell) editAt(tree *filesystem.FileSystem, f *filesystem.Node, cmd string, n int) error {
	count, err := tree.LineCount(f)
	if err != nil {
		return err
	}
	limit := count
	if cmd == ":i" {
		limit = count + 1
	}
	if n > limit {
		sh.printf("Line %d does not exist (file has %d lines)\n", n, count)
		return nil
	}

	if cmd == ":d" {
		err = tree.Delete(f, n)
	} else {
		text, ok, rerr := sh.readText()
		if rerr != nil || !ok {
			return rerr
		}
		if cmd == ":i" {
			err = tree.InsertBefore(f, n, text)
		} else {
			err = tree.Replace(f, n, text)
		}
	}
	if errors.Is(err, filesystem.ErrLineRange) {
		sh.printf("Line %d does not exist\n", n)
		return nil
	}
	if err != nil {
		sh.printErr(err)
	}
	return nil
}
