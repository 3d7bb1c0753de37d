// internal/report/report.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
)

// Write serializes the report to path as indented JSON. The parent directory
// is created when missing.
func Write(path string, rep *models.TransferReport) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transfer report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write transfer report: %w", err)
	}

	logger.Info("Transfer report with %d records written to %s", len(rep.Records), path)
	return nil
}
