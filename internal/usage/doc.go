// Package usage provides disk usage collection for a single target path.
//
// It walks a directory tree using fastwalk with a single worker, applies the
// inclusion predicates (symlinks, mount points, special and hidden files) and
// rolls the size of every admitted path up into the nearest entry recorded
// above the depth cutoff.
package usage
