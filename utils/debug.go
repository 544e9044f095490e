package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DebugOptions contains configuration for debug output.
type DebugOptions struct {
	Enabled      bool
	OutputDir    string
	SaveToFile   bool
	LogPrompts   bool
	LogResponses bool
}

// DebugManager traces the prompts sent to, and raw responses received from,
// the model during an optimization run.
type DebugManager struct {
	options   DebugOptions
	logger    Logger
	outputDir string
	mu        sync.Mutex
}

// NewDebugManager creates a new debug manager. A nil logger discards output.
func NewDebugManager(logger Logger, options DebugOptions) *DebugManager {
	if logger == nil {
		logger = NewNopLogger()
	}
	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(".", "debug_output")
	}

	if options.SaveToFile && options.Enabled {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logger.Warn("failed to create debug output directory", "dir", outputDir, "error", err)
		}
	}

	return &DebugManager{
		options:   options,
		logger:    logger,
		outputDir: outputDir,
	}
}

func (dm *DebugManager) IsEnabled() bool {
	return dm != nil && dm.options.Enabled
}

// LogPrompt logs a prompt if prompt logging is enabled.
func (dm *DebugManager) LogPrompt(name, prompt string) {
	if !dm.IsEnabled() || !dm.options.LogPrompts {
		return
	}
	dm.logger.Debug("prompt", "name", name, "prompt", prompt)
	if dm.options.SaveToFile {
		dm.saveToFile(fileName("prompt", name, "txt"), prompt)
	}
}

// LogResponse logs a raw model response if response logging is enabled.
func (dm *DebugManager) LogResponse(name, response string) {
	if !dm.IsEnabled() || !dm.options.LogResponses {
		return
	}
	dm.logger.Debug("response", "name", name, "response", response)
	if dm.options.SaveToFile {
		dm.saveToFile(fileName("response", name, "txt"), response)
	}
}

func fileName(kind, name, ext string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("%s_%s_%s.%s", kind, safe, time.Now().Format("20060102_150405"), ext)
}

func (dm *DebugManager) saveToFile(filename, content string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	path := filepath.Join(dm.outputDir, filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		dm.logger.Error("failed to open debug file", "file", path, "error", err)
		return
	}
	defer file.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(file, "[%s] %s\n", timestamp, content); err != nil {
		dm.logger.Error("failed to write debug output", "file", path, "error", err)
	}
}
