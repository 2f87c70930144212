package usage

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry represents a single displayed path and its aggregated size.
type Entry struct {
	// Name is the path relative to the scan root. Directories end with a separator.
	Name string `json:"name"`
	// Size is the size in bytes, including everything rolled up into it.
	Size int64 `json:"size"`
	// Dir reports whether the entry is a directory.
	Dir bool `json:"dir"`
}

// Stats holds aggregate statistics for a single target.
type Stats struct {
	// Root is the resolved absolute path of the target.
	Root string `json:"root"`
	// Entries holds the recorded entries in traversal order.
	Entries []Entry `json:"entries"`
	// TotalBytes is the cumulative size of the root and every admitted path.
	TotalBytes int64 `json:"total_bytes"`
	// FileCount is the number of admitted non-directory paths.
	FileCount int64 `json:"file_count"`
	// DirCount is the number of admitted directories, root included.
	DirCount int64 `json:"dir_count"`
	// Unlisted is the number of bytes counted only into TotalBytes.
	Unlisted int64 `json:"unlisted"`
	// ErrorCount is the number of paths skipped because of errors.
	ErrorCount int64 `json:"error_count"`
	// Elapsed is the total time taken for analysis.
	Elapsed time.Duration `json:"elapsed"`
}

// Options configures the traversal.
type Options struct {
	// Path is the file or directory to analyze.
	Path string
	// FollowLinks admits symbolic links and descends into linked directories.
	FollowLinks bool
	// FollowMounts admits mount points below the root.
	FollowMounts bool
	// AllowSpecial admits sockets, devices, pipes and other special files.
	AllowSpecial bool
	// AllowHidden admits paths whose basename starts with a dot.
	AllowHidden bool
	// OnlyDirs records only directories as entries.
	OnlyDirs bool
	// MaxDepth is the depth below which paths are recorded (negative = unlimited).
	MaxDepth int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// OnError is called for every path skipped because of an error.
	OnError func(path string, err error)
	// Mounted reports whether path is a mount point. Nil uses mountinfo.
	Mounted func(path string) (bool, error)
	// Logger receives debug traces. Nil discards them.
	Logger logrus.FieldLogger
}

// frame is the per-directory state carried through the walk.
type frame struct {
	depth int
	// entry is the index of the entry this directory's contents fold into, -1 if none.
	entry int
}

// collector aggregates entries and counters from fastwalk callbacks using a mutex.
type collector struct {
	mu         sync.Mutex
	maxDepth   int
	onlyDirs   bool
	frames     map[string]frame
	entries    []Entry
	totalBytes int64
	fileCount  int64
	dirCount   int64
	unlisted   int64
	errorCount int64
}

// newCollector creates a collector for a walk rooted at root.
// The root itself is pre-counted as one directory.
func newCollector(root string, rootSize int64, maxDepth int, onlyDirs bool) *collector {
	return &collector{
		maxDepth:   maxDepth,
		onlyDirs:   onlyDirs,
		frames:     map[string]frame{filepath.Clean(root): {depth: -1, entry: -1}},
		entries:    make([]Entry, 0),
		totalBytes: rootSize,
		dirCount:   1,
	}
}

// addError increments the error counter.
func (c *collector) addError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}

// parent returns the frame of the directory containing path.
func (c *collector) parent(path string) (frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.frames[filepath.Dir(path)]

	return f, ok
}

// recorded reports whether a path at depth is displayed as its own entry.
func (c *collector) recorded(depth int, isDir bool) bool {
	if c.maxDepth >= 0 && depth >= c.maxDepth {
		return false
	}

	return !c.onlyDirs || isDir
}

// add records an admitted path. name is the path relative to the root.
// The parent frame must have been registered, which holds because fastwalk
// reports a directory before reading its contents.
func (c *collector) add(path, name string, size int64, isDir bool, parent frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalBytes += size
	if isDir {
		c.dirCount++
	} else {
		c.fileCount++
	}

	depth := parent.depth + 1
	index := parent.entry

	if c.recorded(depth, isDir) {
		if isDir {
			name += string(filepath.Separator)
		}

		c.entries = append(c.entries, Entry{Name: name, Size: size, Dir: isDir})
		index = len(c.entries) - 1
	} else if index >= 0 {
		c.entries[index].Size += size
	} else {
		c.unlisted += size
	}

	if isDir {
		c.frames[filepath.Clean(path)] = frame{depth: depth, entry: index}
	}
}

// snapshot returns the number of admitted paths and bytes so far.
func (c *collector) snapshot() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fileCount + c.dirCount, c.totalBytes
}

// finalize produces the final Stats from the collected data.
func (c *collector) finalize(root string) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &Stats{
		Root:       root,
		Entries:    c.entries,
		TotalBytes: c.totalBytes,
		FileCount:  c.fileCount,
		DirCount:   c.dirCount,
		Unlisted:   c.unlisted,
		ErrorCount: c.errorCount,
	}
}
