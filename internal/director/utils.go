package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/svg2video/internal/system"
)

// PlansDir is where generated plans are stored.
var PlansDir = filepath.Join("internal", "plans")

// GeneratePlanPath creates a timestamped plan filename
func GeneratePlanPath() string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(PlansDir, fmt.Sprintf("plan_%s.yaml", timestamp))
}

// FindLatestPlan finds the most recent plan file in the plans directory
func FindLatestPlan() (string, error) {
	path, err := system.FindLatestFile(PlansDir, ".yaml", ".yml")
	if err != nil {
		return "", fmt.Errorf("no plan files found in %s: %w", PlansDir, err)
	}
	return path, nil
}
