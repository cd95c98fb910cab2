package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "errors.log")

	logger := NewLogger(tmpFile)
	logger.LogError("base1-58", errors.New("navigation timeout"))

	data, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "[base1-58]")
	assert.Contains(t, string(data), "navigation timeout")
}

func TestLoggerConcurrentWrites(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "errors.log")
	logger := NewLogger(tmpFile)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogError("base1-4", errors.New("boom"))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 20)
}
