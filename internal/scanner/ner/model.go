package ner

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const defaultSeqLen = 256

// model wraps a loaded ONNX token-classification session plus the tokenizer
// and label table needed to turn its output back into entity spans. A model
// is built once and reused across calls; inference tensors are guarded by a
// mutex since onnxruntime sessions are not safe for concurrent Run calls.
type model struct {
	session   *ort.AdvancedSession
	tokenizer *wordPieceTokenizer
	labels    []string
	seqLen    int
	numLabels int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

func loadModel(bundleDir string, seqLen int) (*model, error) {
	if bundleDir == "" {
		return nil, fmt.Errorf("bundle dir is empty")
	}
	if !bundleDirLooksValid(bundleDir) {
		return nil, fmt.Errorf("bundle dir %s missing required files", bundleDir)
	}
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, "model.onnx")
	labelsPath := filepath.Join(bundleDir, "label_map.json")
	vocabPath := filepath.Join(bundleDir, "tokenizer", "vocab.txt")

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	tokenizer, err := loadWordPieceTokenizer(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(seqLen), int64(len(labels)))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &model{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		seqLen:        seqLen,
		numLabels:     len(labels),
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// infer runs the token-classification model over text and returns the
// predicted label sequence, the softmax probability of each prediction, and
// token offsets, ready for BIO merging into entity spans.
func (m *model) infer(text string) ([]string, []float64, []tokenOffset, error) {
	inputIDs, attn, offsets := m.tokenizer.encodeWithOffsets(text, m.seqLen)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputIDs.GetData(), inputIDs)
	copy(m.attentionMask.GetData(), attn)

	if err := m.session.Run(); err != nil {
		return nil, nil, nil, fmt.Errorf("onnx run: %w", err)
	}

	logits := m.output.GetData()
	labels := make([]string, len(offsets))
	scores := make([]float64, len(offsets))
	for i := range offsets {
		base := i * m.numLabels
		if base >= len(logits) {
			break
		}
		row := logits[base:minInt(base+m.numLabels, len(logits))]
		best, probs := argmaxSoftmax(row)
		if best < len(m.labels) {
			labels[i] = m.labels[best]
			scores[i] = probs[best]
		}
	}
	return labels, scores, offsets, nil
}

func argmaxSoftmax(logits []float32) (int, []float64) {
	if len(logits) == 0 {
		return 0, nil
	}
	maxVal := logits[0]
	best := 0
	for i, v := range logits {
		if v > maxVal {
			maxVal = v
			best = i
		}
	}
	sum := 0.0
	probs := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		probs[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return best, probs
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (m *model) close() {
	if m == nil || m.session == nil {
		return
	}
	m.session.Destroy()
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}
	var byIndex map[string]string
	if err := json.Unmarshal(data, &byIndex); err != nil {
		return nil, err
	}
	out := make([]string, len(byIndex))
	for k, v := range byIndex {
		var idx int
		if _, err := fmt.Sscanf(k, "%d", &idx); err != nil || idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("invalid label index %q", k)
		}
		out[idx] = v
	}
	return out, nil
}
