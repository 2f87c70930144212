package usage_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/hdu/internal/usage"
)

const sep = string(filepath.Separator)

// tree creates files (path -> size) below root. Negative sizes create directories.
func tree(t *testing.T, root string, layout map[string]int) {
	t.Helper()

	for name, size := range layout {
		path := filepath.Join(root, filepath.FromSlash(name))
		if size < 0 {
			require.NoError(t, os.MkdirAll(path, 0o755))

			continue
		}

		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
}

// sizeOf returns the stat size of path.
func sizeOf(t *testing.T, path string) int64 {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)

	return info.Size()
}

// entries returns the entries of stats keyed by name.
func entries(stats *usage.Stats) map[string]int64 {
	m := make(map[string]int64, len(stats.Entries))
	for _, e := range stats.Entries {
		m[e.Name] = e.Size
	}

	return m
}

// run analyzes opt with a nil progress hook.
func run(t *testing.T, opt usage.Options) *usage.Stats {
	t.Helper()

	stats, err := usage.Run(context.Background(), opt, nil)
	require.NoError(t, err)

	return stats
}

func TestRunFlatDirectory(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"a": 1024, "b": 2048})

	stats := run(t, usage.Options{Path: root, MaxDepth: 1})

	assert.Equal(t, map[string]int64{"a": 1024, "b": 2048}, entries(stats))
	assert.Equal(t, sizeOf(t, root)+3072, stats.TotalBytes)
	assert.Equal(t, int64(2), stats.FileCount)
	assert.Equal(t, int64(1), stats.DirCount)
	assert.Zero(t, stats.Unlisted)
	assert.Zero(t, stats.ErrorCount)

	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, resolved, stats.Root)
}

func TestRunRollsUpBelowMaxDepth(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{
		"top":          10,
		"sub/f":        100,
		"sub/deep/g":   50,
		"sub/deep/h/i": 7,
	})

	sub := filepath.Join(root, "sub")
	deep := filepath.Join(sub, "deep")
	h := filepath.Join(deep, "h")

	subKey := "sub" + sep
	fKey := filepath.Join("sub", "f")
	deepKey := filepath.Join("sub", "deep") + sep
	gKey := filepath.Join("sub", "deep", "g")
	hKey := filepath.Join("sub", "deep", "h") + sep
	iKey := filepath.Join("sub", "deep", "h", "i")

	tests := []struct {
		name     string
		maxDepth int
		expected map[string]int64
		unlisted int64
	}{
		{
			name:     "depth 0 records nothing",
			maxDepth: 0,
			expected: map[string]int64{},
			unlisted: 10 + sizeOf(t, sub) + 100 + sizeOf(t, deep) + 50 + sizeOf(t, h) + 7,
		},
		{
			name:     "depth 1 folds into top-level directory",
			maxDepth: 1,
			expected: map[string]int64{
				"top":  10,
				subKey: sizeOf(t, sub) + 100 + sizeOf(t, deep) + 50 + sizeOf(t, h) + 7,
			},
		},
		{
			name:     "depth 2 folds into nearest recorded ancestor",
			maxDepth: 2,
			expected: map[string]int64{
				"top":   10,
				subKey:  sizeOf(t, sub),
				fKey:    100,
				deepKey: sizeOf(t, deep) + 50 + sizeOf(t, h) + 7,
			},
		},
		{
			name:     "negative depth is unlimited",
			maxDepth: -1,
			expected: map[string]int64{
				"top":   10,
				subKey:  sizeOf(t, sub),
				fKey:    100,
				deepKey: sizeOf(t, deep),
				gKey:    50,
				hKey:    sizeOf(t, h),
				iKey:    7,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := run(t, usage.Options{Path: root, MaxDepth: tt.maxDepth})

			assert.Equal(t, tt.expected, entries(stats))
			assert.Equal(t, tt.unlisted, stats.Unlisted)
			assert.Equal(t, int64(4), stats.FileCount)
			assert.Equal(t, int64(4), stats.DirCount)

			var sum int64
			for _, size := range entries(stats) {
				sum += size
			}

			assert.Equal(t, stats.TotalBytes-sizeOf(t, root), sum+stats.Unlisted)
		})
	}
}

func TestRunSiblingWithCommonPrefix(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"log/a": 1, "logs/b": 1000})

	stats := run(t, usage.Options{Path: root, MaxDepth: 1})

	assert.Equal(t, map[string]int64{
		"log" + sep:  sizeOf(t, filepath.Join(root, "log")) + 1,
		"logs" + sep: sizeOf(t, filepath.Join(root, "logs")) + 1000,
	}, entries(stats))
}

func TestRunOnlyDirs(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"file": 30, "dir/inner": 40})

	stats := run(t, usage.Options{Path: root, MaxDepth: 1, OnlyDirs: true})

	assert.Equal(t, map[string]int64{
		"dir" + sep: sizeOf(t, filepath.Join(root, "dir")) + 40,
	}, entries(stats))
	assert.Equal(t, int64(30), stats.Unlisted)
	assert.Equal(t, int64(2), stats.FileCount)
	assert.Equal(t, int64(2), stats.DirCount)
	assert.True(t, stats.Entries[0].Dir)
}

func TestRunHidden(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{".hidden": 5, ".cache/blob": 500, "visible": 7})

	t.Run("excluded by default", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: 1})

		assert.Equal(t, map[string]int64{"visible": 7}, entries(stats))
		assert.Equal(t, int64(1), stats.FileCount)
		assert.Equal(t, int64(1), stats.DirCount)
		assert.Equal(t, sizeOf(t, root)+7, stats.TotalBytes)
	})

	t.Run("allowed", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: 1, AllowHidden: true})

		assert.Len(t, stats.Entries, 3)
		assert.Equal(t, int64(3), stats.FileCount)
		assert.Equal(t, int64(2), stats.DirCount)
	})
}

func TestRunSymlinks(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"target": 64})

	require.NoError(t, os.Symlink(filepath.Join(root, "target"), filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))

	t.Run("not followed", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: 1})

		assert.Equal(t, map[string]int64{"target": 64}, entries(stats))
		assert.Zero(t, stats.ErrorCount)
	})

	t.Run("followed", func(t *testing.T) {
		var failed []string

		stats := run(t, usage.Options{
			Path:        root,
			MaxDepth:    1,
			FollowLinks: true,
			OnError: func(path string, _ error) {
				failed = append(failed, filepath.Base(path))
			},
		})

		assert.Equal(t, map[string]int64{"target": 64, "link": 64}, entries(stats))
		assert.Equal(t, int64(1), stats.ErrorCount)
		assert.Equal(t, []string{"broken"}, failed)
	})
}

func TestRunLinkedDirectory(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"real/x": 100, "real/y": 200})

	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "ln")))

	size := sizeOf(t, filepath.Join(root, "real"))

	t.Run("rolled up", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: 1, FollowLinks: true})

		assert.Equal(t, map[string]int64{
			"real" + sep: size + 300,
			"ln" + sep:   size + 300,
		}, entries(stats))
		assert.Zero(t, stats.Unlisted)
	})

	t.Run("unlimited", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: -1, FollowLinks: true})

		got := entries(stats)
		assert.Equal(t, int64(100), got[filepath.Join("ln", "x")])
		assert.Equal(t, int64(200), got[filepath.Join("ln", "y")])
		assert.Equal(t, int64(100), got[filepath.Join("real", "x")])
		assert.Equal(t, size, got["ln"+sep])
	})

	t.Run("not followed", func(t *testing.T) {
		stats := run(t, usage.Options{Path: root, MaxDepth: -1})

		assert.NotContains(t, entries(stats), "ln"+sep)
		assert.Len(t, stats.Entries, 3)
	})
}

func TestRunLinkLoop(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"a": 10, "sub/b": 20})

	require.NoError(t, os.Symlink(root, filepath.Join(root, "sub", "loop")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := usage.Run(ctx, usage.Options{Path: root, MaxDepth: -1, FollowLinks: true}, nil)
	require.NoError(t, err)

	got := entries(stats)
	assert.Equal(t, int64(10), got["a"])
	assert.Equal(t, int64(20), got[filepath.Join("sub", "b")])
	assert.Contains(t, got, "sub"+sep)
}

func TestRunUnreadableRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced")
	}

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	locked := filepath.Join(t.TempDir(), "locked")
	tree(t, locked, map[string]int{"a": 10})

	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) }) //nolint:gosec // TempDir cleanup needs access

	var failed []string

	stats, err := usage.Run(context.Background(), usage.Options{
		Path:     locked,
		MaxDepth: 1,
		OnError: func(path string, _ error) {
			failed = append(failed, path)
		},
	}, nil)

	require.ErrorIs(t, err, usage.ErrUnreadable)
	assert.Contains(t, err.Error(), locked)
	require.NotNil(t, stats)
	assert.Empty(t, stats.Entries)
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Equal(t, int64(1), stats.DirCount)
	assert.Equal(t, []string{locked}, failed)
}

func TestRunMountPoints(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"mnt/data": 900, "local": 1})

	mounted := func(path string) (bool, error) {
		return filepath.Base(path) == "mnt", nil
	}

	stats := run(t, usage.Options{Path: root, MaxDepth: 1, Mounted: mounted})
	assert.Equal(t, map[string]int64{"local": 1}, entries(stats))

	stats = run(t, usage.Options{Path: root, MaxDepth: 1, Mounted: mounted, FollowMounts: true})
	assert.Len(t, stats.Entries, 2)
}

func TestRunFile(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"single": 4096})

	path := filepath.Join(root, "single")
	stats := run(t, usage.Options{Path: path, MaxDepth: 0})

	assert.Equal(t, []usage.Entry{{Name: path, Size: 4096}}, stats.Entries)
	assert.Equal(t, int64(4096), stats.TotalBytes)
	assert.Equal(t, int64(1), stats.FileCount)
	assert.Zero(t, stats.DirCount)
}

func TestRunNotFound(t *testing.T) {
	_, err := usage.Run(context.Background(), usage.Options{Path: filepath.Join(t.TempDir(), "nope")}, nil)

	require.ErrorIs(t, err, usage.ErrNotFound)
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"a": 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := usage.Run(ctx, usage.Options{Path: root, MaxDepth: 1}, nil)

	require.ErrorIs(t, err, context.Canceled)
}

func TestRunProgress(t *testing.T) {
	root := t.TempDir()
	tree(t, root, map[string]int{"a": 1, "b": 2})

	var paths, bytes int64

	stats, err := usage.Run(context.Background(), usage.Options{Path: root, MaxDepth: 1, ProgressInterval: time.Nanosecond},
		func(p, b int64) {
			paths, bytes = p, b
		})

	require.NoError(t, err)
	assert.Equal(t, stats.FileCount+stats.DirCount, paths)
	assert.Equal(t, stats.TotalBytes, bytes)
}
