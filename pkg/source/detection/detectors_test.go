package detection

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewYuNet_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	_, err := NewYuNet(cfg)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestNewCascade_MissingFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CascadePath = "/nonexistent/cascade.xml"

	_, err := NewCascade(cfg)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestYuNetDetect_SolidFrame(t *testing.T) {
	modelPath := findModel("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.ModelPath = modelPath

	detector, err := NewYuNet(cfg)
	require.NoError(t, err)
	defer detector.Close()

	img := solidFrame(320, 240)
	defer img.Close()

	detections, err := detector.Detect(img)
	require.NoError(t, err)
	assert.Empty(t, detections)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = detector.Detect(empty)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestYuNetConcurrency(t *testing.T) {
	modelPath := findModel("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.ModelPath = modelPath

	detector, err := NewYuNet(cfg)
	require.NoError(t, err)
	defer detector.Close()

	img := solidFrame(320, 240)
	defer img.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := detector.Detect(img)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestCascadeDetect_SolidFrame(t *testing.T) {
	cascadePath := findModel("haarcascade_frontalface_default.xml")
	if cascadePath == "" {
		t.Skip("Haar cascade not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.CascadePath = cascadePath

	detector, err := NewCascade(cfg)
	require.NoError(t, err)
	defer detector.Close()

	img := solidFrame(320, 240)
	defer img.Close()

	detections, err := detector.Detect(img)
	require.NoError(t, err)
	assert.Empty(t, detections)
}

// Helper functions

func findModel(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
		p := filepath.Join(dir, "models", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func solidFrame(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
}
