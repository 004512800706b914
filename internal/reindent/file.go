package reindent

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// StdinPath selects standard input as the source.
const StdinPath = "-"

var (
	ErrMissingPath = errors.New("missing file path")
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// ReadSource reads path, or in when path is "-", and checks it decodes as UTF-8.
func ReadSource(path string, in io.Reader) (string, error) {
	var (
		src []byte
		err error
	)
	switch path {
	case "":
		return "", ErrMissingPath
	case StdinPath:
		if in == nil {
			return "", errors.New("read stdin: no input reader")
		}
		src, err = io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
	default:
		src, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read file %q: %w", path, err)
		}
	}
	if !utf8.Valid(src) {
		return "", fmt.Errorf("decode %q: %w at byte %d", path, ErrInvalidUTF8, invalidOffset(src))
	}
	return string(src), nil
}

func invalidOffset(src []byte) int {
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(src)
}

// WriteFile replaces the content of path, keeping its permission bits.
func WriteFile(path, content string) error {
	if path == StdinPath {
		return errors.New("writing requires a file path")
	}
	mode := os.FileMode(0o644)
	if st, statErr := os.Stat(path); statErr == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}

// File reindents path in place. The file is rewritten even when nothing changes.
func File(path string, opts Options) error {
	if path == StdinPath {
		return errors.New("in-place reindent requires a file path")
	}
	_, err := processPath(path, BatchOptions{Options: opts, Write: true})
	return err
}
