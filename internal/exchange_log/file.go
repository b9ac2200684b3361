package exchangelog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileRecorder appends exchanges to a plain-text log file. The format is
// meant for humans skimming what the bot was asked, not for machines.
type FileRecorder struct {
	mu   sync.Mutex
	path string
}

// NewFileRecorder creates a recorder appending to the given path. The
// file is created on first write.
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Record appends one exchange block to the log file.
func (r *FileRecorder) Record(_ context.Context, ex Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening exchange log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatExchange(ex)); err != nil {
		return fmt.Errorf("appending to exchange log: %w", err)
	}
	return nil
}

func formatExchange(ex Exchange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", ex.AskedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "User: %d", ex.UserID)
	if ex.Username != "" {
		fmt.Fprintf(&b, " (@%s)", ex.Username)
	}
	if ex.FullName != "" {
		fmt.Fprintf(&b, " %s", ex.FullName)
	}
	b.WriteString("\n")
	if ex.Intent != "" {
		fmt.Fprintf(&b, "Intent: %s\n", ex.Intent)
	}
	fmt.Fprintf(&b, "Q: %s\n", ex.Question)
	fmt.Fprintf(&b, "A: %s\n\n", ex.Answer)
	return b.String()
}
