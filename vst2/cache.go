package vst2

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/sync/errgroup"
)

// Cache is an index of vst2 libraries found in scan paths. Libraries are
// indexed by name, which is the file name without extension. Libraries are
// not opened while scanning.
type Cache struct {
	Paths []string
	Libs  Libraries
}

// Libraries maps library name to its path.
type Libraries map[string]string

// FileExtension returns extension of vst2 libraries on current platform.
func FileExtension() string {
	switch runtime.GOOS {
	case "darwin":
		return ".vst"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// DefaultScanPaths returns platform scan paths.
func DefaultScanPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"~/Library/Audio/Plug-Ins/VST",
			"/Library/Audio/Plug-Ins/VST",
		}
	case "windows":
		return []string{
			"C:\\Program Files (x86)\\Steinberg\\VSTPlugins",
			"C:\\Program Files\\Steinberg\\VSTPlugins",
		}
	default:
		return []string{
			"~/.vst",
			"/usr/lib/vst",
			"/usr/local/lib/vst",
		}
	}
}

// NewCache scans provided paths concurrently. Missing paths are skipped.
func NewCache(ctx context.Context, paths ...string) (*Cache, error) {
	c := Cache{
		Paths: uniquePaths(paths),
		Libs:  make(Libraries),
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range c.Paths {
		path := path
		g.Go(func() error {
			found, err := scan(ctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for name, lib := range found {
				// first scan path wins
				if prev, ok := c.Libs[name]; !ok || c.priority(lib) < c.priority(prev) {
					c.Libs[name] = lib
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

// priority returns index of the scan path which contains the library.
func (c *Cache) priority(lib string) int {
	for i, path := range c.Paths {
		if expanded, err := homedir.Expand(path); err == nil && within(lib, expanded) {
			return i
		}
	}
	return len(c.Paths)
}

// within returns true if path is inside the root directory.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func scan(ctx context.Context, root string) (Libraries, error) {
	root, err := homedir.Expand(root)
	if err != nil {
		return nil, err
	}
	libs := make(Libraries)
	ext := FileExtension()
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ext) {
			libs[strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))] = path
			// mac bundles are directories
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return libs, nil
}

// Lookup returns path of the library by name. Name match is
// case-insensitive.
func (c *Cache) Lookup(name string) (string, bool) {
	if path, ok := c.Libs[name]; ok {
		return path, true
	}
	for lib, path := range c.Libs {
		if strings.EqualFold(lib, name) {
			return path, true
		}
	}
	return "", false
}

func uniquePaths(stringSlice []string) []string {
	u := make([]string, 0, len(stringSlice))
	m := make(map[string]bool)
	for _, val := range stringSlice {
		if _, ok := m[val]; !ok {
			m[val] = true
			u = append(u, val)
		}
	}
	return u
}

func (c Cache) String() string {
	var buf bytes.Buffer
	buf.WriteString("Scan paths:\n")
	for _, path := range c.Paths {
		buf.WriteString(fmt.Sprintf("\t%v\n", path))
	}
	buf.WriteString("Available plugins:\n")
	buf.WriteString(c.Libs.String())
	return buf.String()
}

func (libraries Libraries) String() string {
	if len(libraries) == 0 {
		return "\t[No plugins found]\n"
	}
	names := make([]string, 0, len(libraries))
	for name := range libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(fmt.Sprintf("\t%v\t%v\n", name, libraries[name]))
	}
	return buf.String()
}
