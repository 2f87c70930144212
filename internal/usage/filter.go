package usage

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// hiddenPrefix marks hidden files and directories.
const hiddenPrefix = "."

// Node is the metadata the inclusion predicates operate on.
type Node struct {
	// Path is the path as reported by the walk.
	Path string
	// Mode is the mode of the path itself, without following links.
	Mode fs.FileMode
	// Info is the metadata of the link target, or of the path itself.
	// When nil, Mode stands in for it.
	Info fs.FileInfo
}

// IsHidden reports whether the basename of path starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), hiddenPrefix)
}

// IsSymlink reports whether mode describes a symbolic link.
func IsSymlink(mode fs.FileMode) bool {
	return mode&fs.ModeSymlink != 0
}

// IsSpecial reports whether mode describes anything other than a regular
// file, a directory or a symbolic link.
func IsSpecial(mode fs.FileMode) bool {
	return !mode.IsRegular() && !mode.IsDir() && !IsSymlink(mode)
}

// IsMount reports whether path is a mount point according to mounted.
// Paths whose mount state cannot be read are treated as regular paths.
func IsMount(path string, mounted func(string) (bool, error)) bool {
	if mounted == nil {
		mounted = mountinfo.Mounted
	}

	ok, err := mounted(path)

	return err == nil && ok
}

// Admit reports whether node passes every inclusion predicate.
// The mount check only runs for directories, and only when mounts are not followed.
func (o Options) Admit(node Node) bool {
	if !o.FollowLinks && IsSymlink(node.Mode) {
		return false
	}

	mode := node.Mode
	if node.Info != nil {
		mode = node.Info.Mode()
	}

	if !o.AllowSpecial && IsSpecial(mode) {
		return false
	}

	if !o.AllowHidden && IsHidden(node.Path) {
		return false
	}

	if !o.FollowMounts && mode.IsDir() && IsMount(node.Path, o.Mounted) {
		return false
	}

	return true
}
