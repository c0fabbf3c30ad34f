package cache

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint records whether a dependency path exists and, if so, its
// modification time. A path that does not exist is stored with an explicit
// absent marker so that creating the file later changes the fingerprint.
type Fingerprint struct {
	Exists        bool  `json:"exists"`
	MTimeUnixNano int64 `json:"mtime,omitempty"`
}

// ComputeFingerprint stats a single path. Stat errors other than
// non-existence are treated as absent; the worst case is an extra cache
// miss, never stale data.
func ComputeFingerprint(path string) Fingerprint {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{Exists: false}
	}
	return Fingerprint{Exists: true, MTimeUnixNano: info.ModTime().UnixNano()}
}

// FingerprintSet maps dependency paths to their fingerprints.
type FingerprintSet map[string]Fingerprint

// ComputeSet fingerprints every path in deps.
func ComputeSet(deps []string) FingerprintSet {
	set := make(FingerprintSet, len(deps))
	for _, path := range deps {
		set[path] = ComputeFingerprint(path)
	}
	return set
}

// Paths returns the dependency paths in sorted order.
func (s FingerprintSet) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Digest returns a blake2b-256 digest over the canonical encoding of the
// set. Two sets with identical paths and fingerprints produce the same
// digest, so validity checks reduce to one string comparison.
func (s FingerprintSet) Digest() string {
	h, _ := blake2b.New256(nil)
	for _, path := range s.Paths() {
		fp := s[path]
		fmt.Fprintf(h, "%s\x00%t\x00%d\x00", path, fp.Exists, fp.MTimeUnixNano)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SamePaths reports whether both sets cover exactly the same paths.
func (s FingerprintSet) SamePaths(deps []string) bool {
	if len(s) != len(deps) {
		return false
	}
	for _, p := range deps {
		if _, ok := s[p]; !ok {
			return false
		}
	}
	return true
}
