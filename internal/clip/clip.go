// Package clip scores content against natural-language prompts with a CLIP
// dual encoder running on onnxruntime. Text embeddings are computed once per
// prompt and cached; each sample costs one image-encoder pass plus cosine
// similarities.
package clip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/scenesafe/scenesafe/internal/screen"
)

// Options configures model loading.
type Options struct {
	// BundleDir holds clip_text.onnx, clip_image.onnx, vocab.json and
	// merges.txt.
	BundleDir string
	// SeqLen is the text encoder's token window. CLIP uses 77.
	SeqLen int
	// EmbedDim is the shared embedding width. CLIP ViT-B uses 512.
	EmbedDim int
	// ImageSize is the square input resolution. CLIP ViT-B uses 224.
	ImageSize int
}

func (o *Options) applyDefaults() {
	if o.SeqLen <= 0 {
		o.SeqLen = 77
	}
	if o.EmbedDim <= 0 {
		o.EmbedDim = 512
	}
	if o.ImageSize <= 0 {
		o.ImageSize = 224
	}
}

// Scorer wraps the two ONNX sessions. It satisfies screen.Scorer: Score
// accepts an image file path (string) or raw encoded bytes and returns one
// cosine similarity per prompt.
type Scorer struct {
	textSession  *ort.AdvancedSession
	imageSession *ort.AdvancedSession
	tokenizer    *BPETokenizer
	opts         Options

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	textOutput    *ort.Tensor[float32]
	pixelValues   *ort.Tensor[float32]
	imageOutput   *ort.Tensor[float32]

	// mu serializes session runs; the tensors above are reused across calls.
	mu sync.Mutex

	cacheMu     sync.RWMutex
	promptCache map[string][]float32
}

// New initializes the onnxruntime environment and both encoder sessions.
func New(opts Options) (*Scorer, error) {
	if opts.BundleDir == "" {
		return nil, errors.New("bundle dir is empty")
	}
	opts.applyDefaults()

	libPath := resolveSharedLibraryPath(opts.BundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	textPath := filepath.Join(opts.BundleDir, "clip_text.onnx")
	imagePath := filepath.Join(opts.BundleDir, "clip_image.onnx")
	for _, p := range []string{textPath, imagePath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("model file missing at %s: %w", p, err)
		}
	}

	tokenizer, err := LoadBPETokenizer(
		filepath.Join(opts.BundleDir, "vocab.json"),
		filepath.Join(opts.BundleDir, "merges.txt"),
	)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	textShape := ort.NewShape(1, int64(opts.SeqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](textShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](textShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	embedShape := ort.NewShape(1, int64(opts.EmbedDim))
	textOutput, err := ort.NewEmptyTensor[float32](embedShape)
	if err != nil {
		return nil, fmt.Errorf("allocate text_embeds tensor: %w", err)
	}

	pixelShape := ort.NewShape(1, 3, int64(opts.ImageSize), int64(opts.ImageSize))
	pixelValues, err := ort.NewEmptyTensor[float32](pixelShape)
	if err != nil {
		return nil, fmt.Errorf("allocate pixel_values tensor: %w", err)
	}
	imageOutput, err := ort.NewEmptyTensor[float32](embedShape)
	if err != nil {
		return nil, fmt.Errorf("allocate image_embeds tensor: %w", err)
	}

	textSession, err := ort.NewAdvancedSession(
		textPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{textOutput},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create text encoder session: %w", err)
	}

	imageSession, err := ort.NewAdvancedSession(
		imagePath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.Value{pixelValues},
		[]ort.Value{imageOutput},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create image encoder session: %w", err)
	}

	return &Scorer{
		textSession:   textSession,
		imageSession:  imageSession,
		tokenizer:     tokenizer,
		opts:          opts,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		textOutput:    textOutput,
		pixelValues:   pixelValues,
		imageOutput:   imageOutput,
		promptCache:   make(map[string][]float32),
	}, nil
}

var _ screen.Scorer = (*Scorer)(nil)

// Score embeds the content once and returns its cosine similarity to each
// prompt, in prompt order.
func (s *Scorer) Score(ctx context.Context, content screen.Content, prompts []string) ([]float32, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imageEmbed, err := s.embedImage(content)
	if err != nil {
		return nil, err
	}

	out := make([]float32, len(prompts))
	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		textEmbed, err := s.embedPrompt(prompt)
		if err != nil {
			return nil, fmt.Errorf("embed prompt %q: %w", prompt, err)
		}
		out[i] = cosine(imageEmbed, textEmbed)
	}
	return out, nil
}

// Precompute warms the prompt cache so the first sample does not pay for
// every text-encoder pass.
func (s *Scorer) Precompute(ctx context.Context, prompts []string) error {
	for _, p := range prompts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.embedPrompt(p); err != nil {
			return fmt.Errorf("embed prompt %q: %w", p, err)
		}
	}
	return nil
}

func (s *Scorer) embedPrompt(prompt string) ([]float32, error) {
	s.cacheMu.RLock()
	cached, ok := s.promptCache[prompt]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	ids, attn := s.tokenizer.Encode(prompt, s.opts.SeqLen)

	s.mu.Lock()
	copy(s.inputIDs.GetData(), ids)
	copy(s.attentionMask.GetData(), attn)
	if err := s.textSession.Run(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("text encoder run: %w", err)
	}
	embed := normalized(s.textOutput.GetData())
	s.mu.Unlock()

	s.cacheMu.Lock()
	s.promptCache[prompt] = embed
	s.cacheMu.Unlock()
	return embed, nil
}

func (s *Scorer) embedImage(content screen.Content) ([]float32, error) {
	pixels, err := preprocessImage(content, s.opts.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.pixelValues.GetData(), pixels)
	if err := s.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("image encoder run: %w", err)
	}
	return normalized(s.imageOutput.GetData()), nil
}

// Close releases the ONNX sessions and tensors.
func (s *Scorer) Close() error {
	var errs []error
	for _, c := range []interface{ Destroy() error }{
		s.textSession, s.imageSession,
		s.inputIDs, s.attentionMask, s.textOutput,
		s.pixelValues, s.imageOutput,
	} {
		if c != nil {
			if err := c.Destroy(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// normalized copies the vector scaled to unit length, so similarity is a
// plain dot product afterwards.
func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// resolveSharedLibraryPath locates the onnxruntime shared library. The
// ONNXRUNTIME_SHARED_LIBRARY_PATH env var wins; otherwise common names and
// locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
