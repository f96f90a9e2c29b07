package vst2_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce/vst2"
)

func touch(t *testing.T, path string) {
	t.Helper()
	assert.Nil(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.Nil(t, os.WriteFile(path, nil, 0o644))
}

func TestCache(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	ext := vst2.FileExtension()
	touch(t, filepath.Join(first, "Reverb"+ext))
	touch(t, filepath.Join(first, "nested", "Synth"+ext))
	touch(t, filepath.Join(first, "readme.txt"))
	touch(t, filepath.Join(second, "Reverb"+ext))
	touch(t, filepath.Join(second, "Delay"+ext))

	cache, err := vst2.NewCache(context.Background(), first, second, first, filepath.Join(first, "missing"))
	assert.Nil(t, err)
	assert.Equal(t, 3, len(cache.Paths))
	assert.Equal(t, 3, len(cache.Libs))

	tests := []struct {
		name     string
		expected string
		ok       bool
	}{
		{name: "Reverb", expected: filepath.Join(first, "Reverb"+ext), ok: true},
		{name: "synth", expected: filepath.Join(first, "nested", "Synth"+ext), ok: true},
		{name: "Delay", expected: filepath.Join(second, "Delay"+ext), ok: true},
		{name: "readme"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path, ok := cache.Lookup(test.name)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, path)
		})
	}
	assert.Contains(t, cache.String(), "Delay")
}

func TestCacheSiblingPaths(t *testing.T) {
	root := t.TempDir()
	ext := vst2.FileExtension()
	vst, other, vst3 := filepath.Join(root, "vst"), filepath.Join(root, "other"), filepath.Join(root, "vst3")
	assert.Nil(t, os.MkdirAll(vst, 0o755))
	touch(t, filepath.Join(other, "Reverb"+ext))
	touch(t, filepath.Join(vst3, "Reverb"+ext))

	cache, err := vst2.NewCache(context.Background(), vst, other, vst3)
	assert.Nil(t, err)
	path, ok := cache.Lookup("Reverb")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(other, "Reverb"+ext), path)
}

func TestCacheEmpty(t *testing.T) {
	cache, err := vst2.NewCache(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 0, len(cache.Libs))
	assert.Contains(t, cache.String(), "No plugins found")
}

func TestCacheCanceled(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Reverb"+vst2.FileExtension()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := vst2.NewCache(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultScanPaths(t *testing.T) {
	assert.NotEmpty(t, vst2.DefaultScanPaths())
}

func TestLoaderUnknown(t *testing.T) {
	cache, err := vst2.NewCache(context.Background(), t.TempDir())
	assert.Nil(t, err)
	l := vst2.Loader{Cache: cache}
	_, err = l.Load(nil, "Nothing")
	assert.NotNil(t, err)
}
