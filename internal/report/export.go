package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"conform/internal/version"
)

// exportBundle is the envelope written by Export.
type exportBundle struct {
	Tool       string           `json:"tool"`
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	State      *AlignmentState  `json:"state"`
	Report     *AlignmentReport `json:"report,omitempty"`
}

// Export writes a zstd-compressed JSON bundle of the state (and the latest
// report, when available) to path. Bundles are meant for attaching to
// tickets or diffing health across machines.
func Export(path string, state *AlignmentState, rep *AlignmentReport) error {
	bundle := exportBundle{
		Tool:       "conform",
		Version:    version.Version,
		ExportedAt: time.Now().UTC(),
		State:      state,
		Report:     rep,
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode export bundle: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadExport decodes a bundle written by Export.
func ReadExport(path string) (*AlignmentState, *AlignmentReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	defer dec.Close()

	var bundle exportBundle
	if err := json.NewDecoder(dec).Decode(&bundle); err != nil {
		return nil, nil, fmt.Errorf("decode export bundle: %w", err)
	}
	return bundle.State, bundle.Report, nil
}
