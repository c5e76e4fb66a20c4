package frame

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dir replays JPEG files from a directory in name order, cycling
// forever. Useful for feeding recorded captures through the transports
// without sensor hardware. Safe for concurrent Acquire, like Pattern.
type Dir struct {
	Counter

	files []string

	mu   sync.Mutex
	next int
}

func NewDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	d := new(Dir)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg":
			d.files = append(d.files, filepath.Join(path, name))
		}
	}
	sort.Strings(d.files)

	return d, nil
}

func (d *Dir) Acquire() (*Frame, error) {
	if len(d.files) == 0 {
		return nil, ErrNotReady
	}

	d.mu.Lock()
	name := d.files[d.next]
	if d.next++; d.next == len(d.files) {
		d.next = 0
	}
	d.mu.Unlock()

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, ErrNotReady
	}

	d.acquire()
	return New(data, EncodingJPEG, func([]byte) { d.released() }), nil
}

func (d *Dir) Close() error { return nil }
