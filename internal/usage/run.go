package usage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/idelchi/hdu/internal/logger"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// ErrNotFound is returned when the target is neither a file nor a directory.
var ErrNotFound = errors.New("file not found")

// ErrUnreadable is returned alongside the statistics when the root directory
// exists but its contents cannot be listed.
var ErrUnreadable = errors.New("unreadable directory")

// progress invokes hook(paths, bytes) at most once per interval.
// It is driven from the walk callback, so no goroutine is involved.
type progress struct {
	hook     func(int64, int64)
	interval time.Duration
	last     time.Time
}

func newProgress(hook func(int64, int64), interval time.Duration) *progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	return &progress{hook: hook, interval: interval, last: time.Now()}
}

// tick reports the collector state if the interval has elapsed.
//
//nolint:varnamelen // c is idiomatic for collector
func (p *progress) tick(c *collector) {
	if p.hook == nil || time.Since(p.last) < p.interval {
		return
	}

	p.last = time.Now()
	p.hook(c.snapshot())
}

// resolve returns the absolute path of path with symlinks evaluated,
// falling back to the plain absolute path.
func resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}

	return resolved
}

// Run performs disk usage analysis of opt.Path and returns aggregated statistics.
//
// If opt.Path is a file, the result holds that single file. Otherwise the tree
// is walked once: every path admitted by opt.Admit adds to the totals, paths
// shallower than opt.MaxDepth become entries and everything deeper is rolled
// up into the nearest recorded ancestor.
//
// Paths that cannot be read are skipped and reported through opt.OnError.
// A root that cannot be listed yields the partial statistics together with
// an error wrapping ErrUnreadable.
// The walk can be cancelled via ctx. Progress updates are sent to
// progressHook if provided.
//
//nolint:gocognit,funlen // Walk callback keeps the filters in one place.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Stats, error) {
	log := logger.OrDiscard(opt.Logger)

	if opt.Path == "" {
		opt.Path = "."
	}

	opt.Path = filepath.Clean(opt.Path)

	rootInfo, err := os.Stat(opt.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, opt.Path)
		}

		return nil, fmt.Errorf("accessing path %q: %w", opt.Path, err)
	}

	start := time.Now()

	if !rootInfo.IsDir() {
		log.Debugf("%d %s", rootInfo.Size(), opt.Path)

		return &Stats{
			Root:       resolve(opt.Path),
			Entries:    []Entry{{Name: opt.Path, Size: rootInfo.Size()}},
			TotalBytes: rootInfo.Size(),
			FileCount:  1,
			Elapsed:    time.Since(start),
		}, nil
	}

	collector := newCollector(opt.Path, rootInfo.Size(), opt.MaxDepth, opt.OnlyDirs)
	reporter := newProgress(progressHook, opt.ProgressInterval)

	skip := func(path string, err error) {
		log.Debugf("skipping %s: %v", path, err)
		collector.addError()

		if opt.OnError != nil {
			opt.OnError(path, err)
		}
	}

	var rootErr error

	conf := &fastwalk.Config{
		Follow:     opt.FollowLinks,
		NumWorkers: 1,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, opt.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if filepath.Clean(path) == opt.Path {
				rootErr = err
			}

			skip(path, err)

			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if filepath.Clean(path) == opt.Path {
			return nil
		}

		parent, ok := collector.parent(path)
		if !ok {
			// Contents of a directory that was not admitted.
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		// Unfollowed links are excluded before stat so broken ones are not errors.
		if !opt.FollowLinks && IsSymlink(d.Type()) {
			log.Debugf("excluding link %s", path)

			return nil
		}

		info, err := os.Stat(path)
		if err != nil {
			skip(path, err)

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !opt.Admit(Node{Path: path, Mode: d.Type(), Info: info}) {
			log.Debugf("excluding %s", path)

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		name, err := filepath.Rel(opt.Path, path)
		if err != nil {
			name = path
		}

		log.Debugf("%d %s", info.Size(), path)
		collector.add(path, name, info.Size(), info.IsDir(), parent)
		reporter.tick(collector)

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	stats := collector.finalize(resolve(opt.Path))
	stats.Elapsed = time.Since(start)

	if rootErr != nil {
		return stats, fmt.Errorf("%w: %s: %w", ErrUnreadable, opt.Path, rootErr)
	}

	return stats, nil
}
