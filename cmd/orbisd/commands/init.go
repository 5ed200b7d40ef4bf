package commands

import (
	"fmt"

	"github.com/vanin2004/orbis-file-storage/internal/config"
)

// Init writes a YAML reference of the environment variables orbisd
// reads, defaulted, to path.
func Init(path string) error {
	if err := config.WriteSample(path); err != nil {
		return fmt.Errorf("failed to write configuration reference: %w", err)
	}
	fmt.Printf("Configuration reference written to: %s\n", path)
	return nil
}
