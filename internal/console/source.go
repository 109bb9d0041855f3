package console

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// maxSourceSize is the first file size line offsets cannot address.
const maxSourceSize = 1 << 32

// FileSystem is the file access the source cache needs.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// SourceCache holds the text of at most one source file and answers
// line queries against it.
type SourceCache struct {
	fs  FileSystem
	out io.Writer

	filename string
	buffer   []byte
	loaded   bool

	// Restart from line 1 when a window runs past end-of-file
	wrap bool

	// Files already warned about
	warned map[string]bool
}

// SourceOption configures a SourceCache.
type SourceOption func(*SourceCache)

// WithFileSystem sets the file system sources are read from.
func WithFileSystem(fsys FileSystem) SourceOption {
	return func(c *SourceCache) {
		c.fs = fsys
	}
}

// WithWrap enables wrap-around listing.
func WithWrap(wrap bool) SourceOption {
	return func(c *SourceCache) {
		c.wrap = wrap
	}
}

// NewSourceCache creates an empty cache that writes warnings to out.
func NewSourceCache(out io.Writer, opts ...SourceOption) *SourceCache {
	c := &SourceCache{
		fs:     OSFS{},
		out:    out,
		warned: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filename returns the current file name, or "" if none is known.
func (c *SourceCache) Filename() string {
	return c.filename
}

// Loaded reports whether the current file's text is cached.
func (c *SourceCache) Loaded() bool {
	return c.loaded
}

// SetCurrent makes name the current file. A different name discards
// the cached text; it is loaded again on the next line query.
func (c *SourceCache) SetCurrent(name string) {
	if name == c.filename {
		return
	}
	c.filename = name
	c.buffer = nil
	c.loaded = false
}

// Invalidate drops the cached text if it belongs to name.
func (c *SourceCache) Invalidate(name string) {
	if name == c.filename {
		c.buffer = nil
		c.loaded = false
	}
}

// Release drops the cached text and the current file name.
func (c *SourceCache) Release() {
	c.filename = ""
	c.buffer = nil
	c.loaded = false
}

// Load reads name into the cache, replacing what was there. On failure
// the cache is left as it was and a warning is written the first time
// name fails.
func (c *SourceCache) Load(name string) error {
	data, err := c.read(name)
	if err != nil {
		if !c.warned[name] {
			c.warned[name] = true
			fmt.Fprintf(c.out, "warning: cannot load source %s: %v\n", name, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrMissingSourceFile, name, err)
	}

	c.filename = name
	c.buffer = normalizeLineEndings(data)
	c.loaded = true
	return nil
}

func (c *SourceCache) read(name string) ([]byte, error) {
	info, err := c.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.Size() >= maxSourceSize {
		return nil, ErrSourceTooLarge
	}
	return c.fs.ReadFile(name)
}

// normalizeLineEndings turns every "\r\n" into " \n" in place.
func normalizeLineEndings(data []byte) []byte {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			data[i] = ' '
		}
	}
	return data
}

// LineStart returns the byte offset of line index (0-based). If only a
// file name is known the file is loaded first. ok is false when the
// text ends before the line.
//
// Every call scans from the start of the buffer.
func (c *SourceCache) LineStart(index int) (offset int, ok bool) {
	if !c.loaded {
		if c.filename == "" || c.Load(c.filename) != nil {
			return 0, false
		}
	}
	if index < 0 {
		return 0, false
	}

	for line := 0; line < index; line++ {
		nl := bytes.IndexByte(c.buffer[offset:], '\n')
		if nl < 0 {
			return 0, false
		}
		offset += nl + 1
	}
	if offset >= len(c.buffer) {
		return 0, false
	}
	return offset, true
}

// Line returns the text of line index (0-based) without its newline.
func (c *SourceCache) Line(index int) (string, bool) {
	start, ok := c.LineStart(index)
	if !ok {
		return "", false
	}
	end := bytes.IndexByte(c.buffer[start:], '\n')
	if end < 0 {
		return string(c.buffer[start:]), true
	}
	return string(c.buffer[start : start+end]), true
}

// DisplayWindow writes count lines starting at line start (1-based),
// each prefixed with its number, and returns how many were written. If
// the first line does not exist a "file:line" stub is written instead.
// Past end-of-file the window stops, or restarts at line 1 when wrapping
// is enabled.
func (c *SourceCache) DisplayWindow(w io.Writer, start, count int) int {
	if count <= 0 {
		return 0
	}
	if start < 1 {
		start = 1
	}

	idx := start - 1
	text, ok := c.Line(idx)
	if !ok {
		name := c.filename
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(w, "%s:%d \n", name, start)
		return 0
	}

	printed := 0
	for printed < count {
		fmt.Fprintf(w, "%d\t%s\n", idx+1, text)
		printed++

		idx++
		if text, ok = c.Line(idx); ok {
			continue
		}
		if !c.wrap {
			break
		}
		idx = 0
		if text, ok = c.Line(idx); !ok {
			break
		}
	}
	return printed
}
