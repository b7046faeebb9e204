package rectify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
)

var testSlide = Quad{Pt(40, 30), Pt(260, 45), Pt(250, 190), Pt(50, 180)}

func TestProcessDir(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeScene(t, src, "a.png", testSlide)
	writeScene(t, src, "b.png", Quad{Pt(30, 30), Pt(270, 30), Pt(270, 190), Pt(30, 190)})
	require.NoError(t, os.WriteFile(filepath.Join(src, "bad.png"), []byte("nope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0644))

	results, err := ProcessDir(context.Background(), src, dst, Options{Width: 80, Height: 60, Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, filepath.Join(src, "a.png"), results[0].Source)
	assert.Equal(t, filepath.Join(dst, "a.png"), results[0].Output)
	assert.Equal(t, MergeOtsu, results[0].Strategy)
	require.NotNil(t, results[0].Merged)
	assertQuadNear(t, testSlide, *results[0].Merged, 3)

	assert.Empty(t, results[1].Error)
	assert.Equal(t, filepath.Join(src, "bad.png"), results[2].Source)
	assert.NotEmpty(t, results[2].Error)
	assert.Empty(t, results[2].Output)

	dims, err := imaging.GetDimensions(imaging.NewImageCache(), filepath.Join(dst, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, 80, dims.Width)
	assert.Equal(t, 60, dims.Height)

	_, err = os.Stat(filepath.Join(dst, "bad.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessDir_SameDir(t *testing.T) {
	dir := t.TempDir()
	_, err := ProcessDir(context.Background(), dir, dir+string(filepath.Separator)+".", Options{})
	assert.ErrorIs(t, err, ErrSameDir)
}

func TestProcessDir_Cancelled(t *testing.T) {
	src := t.TempDir()
	writeScene(t, src, "a.png", testSlide)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessDir(ctx, src, t.TempDir(), Options{Width: 40, Height: 30})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessDir_MissingSource(t *testing.T) {
	_, err := ProcessDir(context.Background(), filepath.Join(t.TempDir(), "none"), t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestWatch_RectifiesNewFiles(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan FileResult, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, src, dst, Options{Width: 80, Height: 60}, func(fr FileResult) {
			results <- fr
		})
	}()

	// Give the watcher time to register before the file appears. The image is
	// written under a non-matching name and renamed so it appears complete.
	time.Sleep(200 * time.Millisecond)
	staged := writeScene(t, t.TempDir(), "slide.png", testSlide)
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	tmp := filepath.Join(src, "slide.part")
	require.NoError(t, os.WriteFile(tmp, data, 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(src, "slide.png")))

	select {
	case fr := <-results:
		assert.Empty(t, fr.Error)
		assert.Equal(t, filepath.Join(dst, "slide.png"), fr.Output)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not process the new file")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestWatch_ChunkedWriteProcessedOnce(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const settle = 300 * time.Millisecond
	results := make(chan FileResult, 8)
	go func() {
		_ = Watch(ctx, src, dst, Options{Width: 80, Height: 60, Settle: settle}, func(fr FileResult) {
			results <- fr
		})
	}()
	time.Sleep(200 * time.Millisecond)

	data, err := os.ReadFile(writeScene(t, t.TempDir(), "slide.png", testSlide))
	require.NoError(t, err)

	// Copy the file in three chunks, each well inside the quiet period.
	f, err := os.Create(filepath.Join(src, "slide.png"))
	require.NoError(t, err)
	third := len(data) / 3
	for _, chunk := range [][]byte{data[:third], data[third : 2*third], data[2*third:]} {
		_, err := f.Write(chunk)
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	select {
	case fr := <-results:
		assert.Empty(t, fr.Error)
		assert.Equal(t, filepath.Join(dst, "slide.png"), fr.Output)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not process the file")
	}

	select {
	case fr := <-results:
		t.Fatalf("file processed again: %+v", fr)
	case <-time.After(3 * settle):
	}
}

func TestDebouncer_IgnoresStaleGenerations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newDebouncer(ctx, time.Hour)
	defer d.stop()

	d.touch("a.png")
	first := settled{path: "a.png", gen: d.gen}
	d.touch("a.png")
	latest := settled{path: "a.png", gen: d.gen}

	assert.False(t, d.take(first), "superseded event must be dropped")
	assert.True(t, d.take(latest))
	assert.False(t, d.take(latest), "a path is taken once")
	assert.Empty(t, d.pending)
}
