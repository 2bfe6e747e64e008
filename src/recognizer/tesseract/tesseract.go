// Package tesseract provides the two on-device OCR engines backed by gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"screen-ocr-overlay/src/recognizer"
)

const (
	DefaultLatinLanguage = "eng"
	DefaultCJKLanguage   = "chi_sim"
)

// Engine wraps one long-lived tesseract client configured for a language set.
// gosseract clients are not safe for concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
}

// NewEngine creates a client for langs. The client holds native resources
// until Close.
func NewEngine(langs ...string) (*Engine, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	c := gosseract.NewClient()
	if err := c.SetLanguage(langs...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages %v: %w", langs, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	return &Engine{client: c, langs: langs}, nil
}

// Factory returns a recognizer.EngineFactory that builds an engine for langs.
func Factory(langs ...string) recognizer.EngineFactory {
	return func() (recognizer.Engine, error) {
		return NewEngine(langs...)
	}
}

// Recognize runs one pass. ctx is only checked before the pass starts; the
// native call itself cannot be interrupted.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (recognizer.EngineOutput, error) {
	if err := ctx.Err(); err != nil {
		return recognizer.EngineOutput{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return recognizer.EngineOutput{}, fmt.Errorf("encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return recognizer.EngineOutput{}, fmt.Errorf("engine %v closed", e.langs)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return recognizer.EngineOutput{}, fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return recognizer.EngineOutput{}, fmt.Errorf("recognize text: %w", err)
	}
	return recognizer.EngineOutput{
		Text:  strings.TrimSpace(text),
		Lines: e.lines(),
	}, nil
}

func (e *Engine) lines() []recognizer.Line {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	lines := make([]recognizer.Line, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		lines = append(lines, recognizer.Line{
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence / 100.0,
		})
	}
	return lines
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// NewRecognizer wires a Latin and a CJK engine into a recognizer.
func NewRecognizer(latinLang, cjkLang string, opts recognizer.Options) (*recognizer.Recognizer, error) {
	if latinLang == "" {
		latinLang = DefaultLatinLanguage
	}
	if cjkLang == "" {
		cjkLang = DefaultCJKLanguage
	}
	return recognizer.New(Factory(latinLang), Factory(cjkLang), opts)
}
