// cmd/gphotos-amazon-transfer/main.go
package main

import (
	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
