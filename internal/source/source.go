package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// MaxBytes caps a submission's size.
const MaxBytes = 256 << 10

var (
	// ErrBinary is returned for content that is not text.
	ErrBinary = errors.New("source looks binary")
	// ErrTooLarge is returned for content over MaxBytes.
	ErrTooLarge = errors.New("source is too large")
)

// Source is a loaded submission.
type Source struct {
	Text     string
	Name     string // file path, "stdin", or "path@rev"
	Origin   string // file, stream, git
	Revision string
}

// FromFile reads path from disk.
func FromFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()
	text, err := readLimited(f)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return Source{Text: text, Name: path, Origin: "file"}, nil
}

// FromReader reads a stream such as stdin.
func FromReader(r io.Reader, name string) (Source, error) {
	text, err := readLimited(r)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", name, err)
	}
	return Source{Text: text, Name: name, Origin: "stream"}, nil
}

// FromRevision reads path as recorded at rev in the git repository that
// contains it.
func FromRevision(ctx context.Context, rev, path string) (Source, error) {
	if rev == "" {
		return Source{}, errors.New("revision is required")
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	out, err := gitOutput(ctx, dir, "show", rev+":./"+base)
	if err != nil {
		return Source{}, fmt.Errorf("git show %s:%s: %w", rev, path, err)
	}
	text, err := readLimited(strings.NewReader(out))
	if err != nil {
		return Source{}, fmt.Errorf("%s@%s: %w", path, rev, err)
	}
	return Source{Text: text, Name: path + "@" + rev, Origin: "git", Revision: rev}, nil
}

// Load picks the loader for a command-line argument: "-" or empty reads
// stdin, a non-empty rev reads from git, anything else is a file.
func Load(ctx context.Context, arg, rev string, stdin io.Reader) (Source, error) {
	switch {
	case arg == "" || arg == "-":
		if rev != "" {
			return Source{}, errors.New("a revision needs a file path")
		}
		return FromReader(stdin, "stdin")
	case rev != "":
		return FromRevision(ctx, rev, arg)
	default:
		return FromFile(arg)
	}
}

func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	if len(data) > MaxBytes {
		return "", ErrTooLarge
	}
	if isBinary(data) {
		return "", ErrBinary
	}
	return string(data), nil
}

// isBinary applies git's heuristic: a NUL byte in the first 8000 bytes.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
