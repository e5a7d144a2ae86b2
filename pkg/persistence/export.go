package persistence

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Ramsey-B/enygma/pkg/errors"
)

// ExportFileName is the file name an exported configuration is offered under.
func ExportFileName(name string) string {
	return fmt.Sprintf("cipher-%s.json", name)
}

// Export writes cfg to w as indented JSON.
func Export(w io.Writer, cfg SavedConfiguration) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// MaxImportSize bounds an imported configuration document.
const MaxImportSize = 1 << 20

// Import reads an exported configuration of at most MaxImportSize bytes. See
// Decode for the accepted versions.
func Import(r io.Reader) (SavedConfiguration, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return SavedConfiguration{}, errors.NewChainErrorf(errors.CodeCorrupt, "failed to read configuration: %w", err)
	}
	if len(data) > MaxImportSize {
		return SavedConfiguration{}, errors.NewChainErrorf(errors.CodeTooLarge, "configuration exceeds %d bytes", MaxImportSize)
	}
	return Decode(data)
}
