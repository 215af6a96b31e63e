package probe

import (
	"os"
)

// writeSample writes the sampled bytes to path, overwriting any existing
// file.
func writeSample(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
