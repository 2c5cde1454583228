package frames_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.Gray{Y: 200})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeBMP(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, bmp.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func TestDirSourceReadsInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 3)
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6)
	writeBMP(t, filepath.Join(dir, "sub", "c.bmp"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	src, err := frames.OpenDir(frames.DirOptions{Dir: dir})
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	var sizes [][2]int
	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, uint64(len(sizes)), f.Index)
		sizes = append(sizes, [2]int{f.Width, f.Height})
	}
	assert.Equal(t, [][2]int{{8, 6}, {4, 3}, {2, 2}}, sizes)
}

func TestDirSourcePattern(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "cam0_001.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "cam1_001.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "nested", "cam0_002.png"), 2, 2)

	src, err := frames.OpenDir(frames.DirOptions{Dir: dir, Pattern: "cam0_*.png"})
	require.NoError(t, err)
	defer src.Close()

	files := src.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "cam0_001.png", filepath.Base(files[0]))
}

func TestDirSourceErrors(t *testing.T) {
	_, err := frames.OpenDir(frames.DirOptions{Dir: t.TempDir()})
	require.ErrorIs(t, err, frames.ErrNoFrames)

	_, err = frames.OpenDir(frames.DirOptions{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestDirSourceSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("not a png"), 0o644))
	writePNG(t, filepath.Join(dir, "b.png"), 5, 5)

	src, err := frames.OpenDir(frames.DirOptions{Dir: dir})
	require.NoError(t, err)
	defer src.Close()

	f, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, f.Width)
	assert.Equal(t, uint64(0), f.Index)
}

func TestDirSourceLoop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 3, 3)

	src, err := frames.OpenDir(frames.DirOptions{Dir: dir, Loop: true})
	require.NoError(t, err)
	defer src.Close()

	for i := range 5 {
		f, err := src.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), f.Index)
	}
}

func TestDirSourceFollow(t *testing.T) {
	dir := t.TempDir()

	src, err := frames.OpenDir(frames.DirOptions{Dir: dir, Follow: true})
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tmp := filepath.Join(t.TempDir(), "late.png")
	writePNG(t, tmp, 7, 7)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.Rename(tmp, filepath.Join(dir, "late.png"))
	}()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, f.Width)
}

func TestDirSourceFollowCancelled(t *testing.T) {
	src, err := frames.OpenDir(frames.DirOptions{Dir: t.TempDir(), Follow: true})
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacer(t *testing.T) {
	p := frames.NewPacer(50)
	ctx := context.Background()
	start := time.Now()
	for range 3 {
		require.NoError(t, p.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)

	assert.NoError(t, frames.NewPacer(0).Wait(ctx))
}
