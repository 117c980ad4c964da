package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// DumpIncident persists the full detail of a failure to its own file under
// dir, so a single tick error can be inspected post-mortem without digging
// through the main log. Returns the file path, or "" when the dump itself
// failed (the failure is still reported on the main log).
func DumpIncident(dir string, err error) string {
	if err == nil {
		return ""
	}
	if dir == "" {
		dir = "log"
	}
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		Errorf("incident dump: create dir %s: %v", dir, mkErr)
		return ""
	}
	name := fmt.Sprintf("%s_%s.log",
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	content := fmt.Sprintf("time: %s\nerror: %v\n\nstack:\n%s",
		time.Now().Format(time.RFC3339), err, debug.Stack())
	if wrErr := os.WriteFile(path, []byte(content), 0o644); wrErr != nil {
		Errorf("incident dump: write %s: %v", path, wrErr)
		return ""
	}
	Errorf("incident saved at %s: %v", path, err)
	return path
}
