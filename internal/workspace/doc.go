// Package workspace manages the private build directory: the scratch template tree that
// is regenerated on every full build, and the lock that keeps two builds from sharing it.
// It also holds the small file-tree operations the build uses to mirror directories.
package workspace
