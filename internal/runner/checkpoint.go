package runner

import (
	"encoding/json"
	"os"
	"sync"
)

// fileStamp identifies a decoded version of a dump.
type fileStamp struct {
	ModTimeUnix int64 `json:"mtime"`
	Size        int64 `json:"size"`
}

// checkpointData is the on-disk JSON structure for decoded-file stamps.
type checkpointData struct {
	Decoded map[string]fileStamp `json:"decoded"`
}

// Checkpoint persists which dump versions have already been decoded so a
// restarted watch session does not redo them.
type Checkpoint struct {
	mu   sync.RWMutex
	path string
	data checkpointData
}

// NewCheckpoint creates or loads a checkpoint file at the given path.
func NewCheckpoint(path string) (*Checkpoint, error) {
	c := &Checkpoint{
		path: path,
		data: checkpointData{Decoded: make(map[string]fileStamp)},
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(raw, &c.data)
	}
	if c.data.Decoded == nil {
		c.data.Decoded = make(map[string]fileStamp)
	}

	return c, nil
}

// Seen reports whether this exact version of the file was already decoded.
func (c *Checkpoint) Seen(path string, mtimeUnix, size int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.data.Decoded[path]
	return ok && s.ModTimeUnix == mtimeUnix && s.Size == size
}

// Mark records that this version of the file has been decoded.
func (c *Checkpoint) Mark(path string, mtimeUnix, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Decoded[path] = fileStamp{ModTimeUnix: mtimeUnix, Size: size}
}

// Forget drops the stamp for a removed file.
func (c *Checkpoint) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data.Decoded, path)
}

// Save writes the checkpoint data to disk atomically.
func (c *Checkpoint) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file first, then rename for atomicity.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
