package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/render/soft"
	"github.com/coreman2200/arcagallery/internal/slide"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// mapFetcher serves fixed bytes; refs in gate block until released.
type mapFetcher struct {
	data map[string][]byte
	gate map[string]chan struct{}
}

func (f mapFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if g, ok := f.gate[ref]; ok {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b, ok := f.data[ref]
	if !ok {
		return nil, errors.New("404")
	}
	return b, nil
}

type inbox struct {
	mu  sync.Mutex
	got []Result
	ch  chan struct{}
}

func newInbox() *inbox { return &inbox{ch: make(chan struct{}, 64)} }

func (b *inbox) post(r Result) {
	b.mu.Lock()
	b.got = append(b.got, r)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func (b *inbox) wait(t *testing.T, n int) []Result {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-b.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d results", n)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.got
	b.got = nil
	return out
}

func seq(t *testing.T, refs ...string) slide.Sequence {
	t.Helper()
	var ss []slide.Slide
	for _, r := range refs {
		ss = append(ss, slide.Slide{ID: r, MediaRef: r})
	}
	s, err := slide.NewSequence(ss)
	require.NoError(t, err)
	return s
}

func TestDecodeRejectsNonImages(t *testing.T) {
	_, err := Decode([]byte("hello world, definitely not a png"))
	assert.ErrorIs(t, err, ErrNotImage)

	img, err := Decode(pngBytes(t, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 2), img.Bounds().Size())
}

func TestLoadAllUploadsAndRecordsFailures(t *testing.T) {
	dev := soft.New(0, 0)
	box := newInbox()
	f := mapFetcher{data: map[string][]byte{
		"a": pngBytes(t, 4, 2),
		"b": pngBytes(t, 2, 4),
		"c": []byte("garbage"),
	}}
	l := New(dev, f, box.post, Options{Workers: 2})
	l.LoadAll(context.Background(), seq(t, "a", "b", "c", "d"))

	for _, r := range box.wait(t, 4) {
		_, ok, err := l.Accept(r)
		assert.True(t, ok)
		assert.NoError(t, err)
	}
	assert.Equal(t, Ready, l.State(0))
	assert.Equal(t, Ready, l.State(1))
	assert.Equal(t, Failed, l.State(2))
	assert.Equal(t, Failed, l.State(3))
	assert.Equal(t, 2, l.Ready())
	assert.True(t, l.Settled())

	tex, ok := l.Texture(1)
	require.True(t, ok)
	assert.Equal(t, image.Pt(2, 4), tex.Size)
	assert.Equal(t, 2, dev.LiveTextures())

	var released []render.Texture
	l.OnRelease = func(t render.Texture) { released = append(released, t) }
	l.ReleaseAll()
	l.ReleaseAll()
	assert.Equal(t, 0, dev.LiveTextures())
	assert.Equal(t, 0, l.LiveTextures())
	assert.Len(t, released, 2)
}

func TestLateResultsAfterReleaseAreDiscarded(t *testing.T) {
	dev := soft.New(0, 0)
	box := newInbox()
	gate := make(chan struct{})
	f := mapFetcher{
		data: map[string][]byte{"a": pngBytes(t, 2, 2), "b": pngBytes(t, 2, 2)},
		gate: map[string]chan struct{}{"b": gate},
	}
	l := New(dev, f, box.post, Options{Workers: 2})
	l.LoadAll(context.Background(), seq(t, "a", "b"))

	first := box.wait(t, 1)
	_, ok, _ := l.Accept(first[0])
	require.True(t, ok)

	l.ReleaseAll()
	close(gate)
	late := box.wait(t, 1)
	_, ok, _ = l.Accept(late[0])
	assert.False(t, ok)
	assert.Equal(t, 0, dev.LiveTextures())
}

func TestReuploadAfterLoss(t *testing.T) {
	dev := soft.New(0, 0)
	box := newInbox()
	f := mapFetcher{data: map[string][]byte{"a": pngBytes(t, 2, 2), "b": pngBytes(t, 2, 2)}}
	l := New(dev, f, box.post, Options{})
	l.LoadAll(context.Background(), seq(t, "a", "b"))
	for _, r := range box.wait(t, 2) {
		l.Accept(r)
	}
	require.Equal(t, 2, dev.LiveTextures())

	dev.Lose()
	assert.Error(t, l.Reupload())
	dev.Restore()
	require.NoError(t, l.Reupload())
	assert.Equal(t, 2, dev.LiveTextures())
	assert.Equal(t, 2, l.LiveTextures())
	assert.Equal(t, 2, l.Ready())
}

func TestUploadOnLostSurfaceStaysPending(t *testing.T) {
	dev := soft.New(0, 0)
	box := newInbox()
	f := mapFetcher{data: map[string][]byte{"a": pngBytes(t, 2, 2)}}
	l := New(dev, f, box.post, Options{})
	l.LoadAll(context.Background(), seq(t, "a"))
	res := box.wait(t, 1)

	dev.Lose()
	st, ok, err := l.Accept(res[0])
	assert.True(t, ok)
	assert.ErrorIs(t, err, render.ErrSurfaceLost)
	assert.Equal(t, Pending, st)
	assert.False(t, l.Settled())
	_, hasSrc := l.Source(0)
	assert.True(t, hasSrc)

	dev.Restore()
	require.NoError(t, l.Reupload())
	assert.Equal(t, Ready, l.State(0))
	assert.True(t, l.Settled())
}
