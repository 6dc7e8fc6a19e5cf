// Package hashfile implements supervisor.HashReader by reading the
// app.md5 key out of an application's info.properties file, a flat
// key=value format matching the rest of the corpus's preference for
// plain-text property files over structured config for small, static
// per-unit metadata.
package hashfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/legatoproject/go-supervisor/internal/supervisor"
)

const hashKey = "app.md5"

// Reader resolves an application's info.properties file under root,
// expected to be laid out as root/<name>/info.properties.
type Reader struct {
	root string
}

// New returns a Reader rooted at the given apps install directory.
func New(root string) *Reader {
	return &Reader{root: root}
}

// Hash implements supervisor.HashReader.
func (r *Reader) Hash(name string) (string, error) {
	path := filepath.Join(r.root, name, "info.properties")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", supervisor.ErrNotInstalled
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == hashKey {
			return strings.TrimSpace(value), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return "", supervisor.ErrNotInstalled
}

var _ supervisor.HashReader = (*Reader)(nil)
