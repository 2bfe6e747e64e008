package recognizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func out(text string, confs ...float64) EngineOutput {
	o := EngineOutput{Text: text}
	for _, c := range confs {
		o.Lines = append(o.Lines, Line{Text: text, Confidence: c})
	}
	return o
}

func TestMergeHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		latin, cjk EngineOutput
		opts       Options
		wantText   string
		wantScript Script
	}{
		{
			name:       "high cjk share wins",
			latin:      out("Hello", 0.9),
			cjk:        out("你好世界", 0.4),
			opts:       DefaultOptions,
			wantText:   "你好世界",
			wantScript: ScriptCJK,
		},
		{
			name:       "blank cjk falls back to latin",
			latin:      out("Hello", 0.3),
			cjk:        out("", 0.9),
			opts:       DefaultOptions,
			wantText:   "Hello",
			wantScript: ScriptLatin,
		},
		{
			name:       "blank latin falls back to cjk",
			latin:      out("   "),
			cjk:        out("abc", 0.1),
			opts:       DefaultOptions,
			wantText:   "abc",
			wantScript: ScriptCJK,
		},
		{
			name:       "latin wins on confidence margin with low cjk share",
			latin:      out("A1", 0.7),
			cjk:        out("A1 你", 0.5),
			opts:       DefaultOptions,
			wantText:   "A1",
			wantScript: ScriptLatin,
		},
		{
			name:       "equal confidence defaults to cjk",
			latin:      out("Invoice", 0.6),
			cjk:        out("Inv0ice", 0.6),
			opts:       DefaultOptions,
			wantText:   "Inv0ice",
			wantScript: ScriptCJK,
		},
		{
			name:       "margin not exceeded defaults to cjk",
			latin:      out("Total", 0.65),
			cjk:        out("T0tal", 0.6),
			opts:       DefaultOptions,
			wantText:   "T0tal",
			wantScript: ScriptCJK,
		},
		{
			name:       "latin bias when cjk preference is off",
			latin:      out("Invoice", 0.6),
			cjk:        out("Inv0ice", 0.6),
			opts:       Options{PreferCJK: false},
			wantText:   "Invoice",
			wantScript: ScriptLatin,
		},
		{
			name:       "both blank",
			latin:      out(""),
			cjk:        out("\n"),
			opts:       DefaultOptions,
			wantText:   "",
			wantScript: ScriptNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.latin, tt.cjk, tt.opts)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantScript, got.Script)
		})
	}
}

func TestMergeReturnsOtherOutputVerbatim(t *testing.T) {
	got := Merge(out("  Hello\n", 0.5), out(""), DefaultOptions)
	assert.Equal(t, "  Hello\n", got.Text)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestCJKRatio(t *testing.T) {
	assert.InDelta(t, 4.0/12.0, CJKRatio("你好世界"), 1e-9)
	assert.Equal(t, 0.0, CJKRatio(""))
	assert.Equal(t, 0.0, CJKRatio("Hello"))
	assert.InDelta(t, 1.0/9.0, CJKRatio("A1 B2 你"), 1e-9)
	assert.InDelta(t, 2.0/8.0, CJKRatio("ab한글"), 1e-9)
	assert.InDelta(t, 1.0/6.0, CJKRatio("A1 你"), 1e-9)

	assert.Greater(t, CJKRatio("你好世界"), DefaultOptions.CJKRatioThreshold)
	assert.LessOrEqual(t, CJKRatio("A1 你"), DefaultOptions.CJKRatioThreshold)
}

func TestEngineConfidenceIsMeanOfLines(t *testing.T) {
	assert.Equal(t, 0.0, EngineOutput{Text: "x"}.Confidence())
	assert.InDelta(t, 0.5, out("x", 0.2, 0.8).Confidence(), 1e-9)
}

func TestPreprocessContrast(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 200, G: 0, B: 255, A: 255})
	src.SetRGBA(2, 0, color.RGBA{R: 100, G: 156, B: 10, A: 255})

	dst := Preprocess(src, 0.25)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, dst.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 218, G: 0, B: 255, A: 255}, dst.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{R: 93, G: 163, B: 0, A: 255}, dst.RGBAAt(2, 0))

	again := Preprocess(src, 0.25)
	assert.Equal(t, dst.Pix, again.Pix, "preprocessing must be deterministic")
	assert.Equal(t, color.RGBA{R: 200, G: 0, B: 255, A: 255}, src.RGBAAt(1, 0), "source must not be modified")
}

type fakeEngine struct {
	output  EngineOutput
	err     error
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	closes  atomic.Int32
}

func (e *fakeEngine) Recognize(ctx context.Context, img image.Image) (EngineOutput, error) {
	e.calls.Add(1)
	if e.started != nil {
		close(e.started)
	}
	if e.release != nil {
		<-e.release
	}
	return e.output, e.err
}

func (e *fakeEngine) Close() error {
	e.closes.Add(1)
	return nil
}

func factoryFor(e *fakeEngine, built *atomic.Int32) EngineFactory {
	return func() (Engine, error) {
		if built != nil {
			built.Add(1)
		}
		return e, nil
	}
}

func testImage() image.Image { return image.NewRGBA(image.Rect(0, 0, 4, 4)) }

func TestRecognizeRunsEnginesConcurrently(t *testing.T) {
	latin := &fakeEngine{output: out("Hello", 0.9), started: make(chan struct{}), release: make(chan struct{})}
	cjk := &fakeEngine{output: out("你好", 0.8), started: make(chan struct{}), release: make(chan struct{})}
	r, err := New(factoryFor(latin, nil), factoryFor(cjk, nil), DefaultOptions)
	require.NoError(t, err)
	defer r.Close()

	// Each engine waits for the other to have started; a sequential caller
	// would never get past the first one.
	go func() {
		<-latin.started
		<-cjk.started
		close(latin.release)
		close(cjk.release)
	}()

	done := make(chan Result, 1)
	go func() {
		res, err := r.Recognize(context.Background(), testImage())
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, "你好", res.Text)
		assert.Equal(t, ScriptCJK, res.Script)
	case <-time.After(2 * time.Second):
		t.Fatal("engines were not run concurrently")
	}
}

func TestEnginesAreLazyAndReleasedOnce(t *testing.T) {
	var builtLatin, builtCJK atomic.Int32
	latin := &fakeEngine{output: out("a", 1)}
	cjk := &fakeEngine{output: out("", 0)}
	r, err := New(factoryFor(latin, &builtLatin), factoryFor(cjk, &builtCJK), DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, int32(0), builtLatin.Load(), "engines must not be created before first use")

	for i := 0; i < 3; i++ {
		res, err := r.Recognize(context.Background(), testImage())
		require.NoError(t, err)
		assert.Equal(t, "a", res.Text)
	}
	assert.Equal(t, int32(1), builtLatin.Load())
	assert.Equal(t, int32(1), builtCJK.Load())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), latin.closes.Load())
	assert.Equal(t, int32(1), cjk.closes.Load())

	_, err = r.Recognize(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseWithoutUseBuildsNothing(t *testing.T) {
	var built atomic.Int32
	e := &fakeEngine{}
	r, err := New(factoryFor(e, &built), factoryFor(e, &built), DefaultOptions)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, int32(0), built.Load())
	assert.Equal(t, int32(0), e.closes.Load())
}

func TestOneEngineFailureCountsAsBlank(t *testing.T) {
	latin := &fakeEngine{err: errors.New("latin crashed")}
	cjk := &fakeEngine{output: out("東京", 0.7)}
	r, err := New(factoryFor(latin, nil), factoryFor(cjk, nil), DefaultOptions)
	require.NoError(t, err)
	defer r.Close()

	res, err := r.Recognize(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "東京", res.Text)
}

func TestBothEnginesFailing(t *testing.T) {
	latin := &fakeEngine{err: errors.New("latin crashed")}
	cjk := &fakeEngine{err: errors.New("cjk crashed")}
	r, err := New(factoryFor(latin, nil), factoryFor(cjk, nil), DefaultOptions)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Recognize(context.Background(), testImage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latin crashed")
	assert.Contains(t, err.Error(), "cjk crashed")
}

func TestFactoryFailureIsReported(t *testing.T) {
	broken := func() (Engine, error) { return nil, errors.New("no traineddata") }
	r, err := New(broken, broken, DefaultOptions)
	require.NoError(t, err)
	_, err = r.Recognize(context.Background(), testImage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no traineddata")
	require.NoError(t, r.Close())
}

func TestAbandonedCallDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	latin := &fakeEngine{output: out("late", 1), release: release}
	cjk := &fakeEngine{output: out("", 0)}
	r, err := New(factoryFor(latin, nil), factoryFor(cjk, nil), DefaultOptions)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Recognize(ctx, testImage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Close must wait for the still-running engine before releasing it.
		assert.NoError(t, r.Close())
	}()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), latin.closes.Load())
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), latin.closes.Load())
}

func TestNewRequiresBothFactories(t *testing.T) {
	_, err := New(nil, factoryFor(&fakeEngine{}, nil), DefaultOptions)
	assert.ErrorIs(t, err, ErrNoEngines)
}
