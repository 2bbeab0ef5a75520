// Package runutil holds small helpers shared by the commands: thread
// defaults, basepair spans and derived output names.
package runutil

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Threads resolves a requested worker count; values <= 0 mean one per CPU.
func Threads(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

var (
	compressionExts = []string{".gz", ".bgz", ".zst", ".zstd", ".xz", ".bz2"}
	recordExts      = []string{".fastq", ".fq", ".fasta", ".fa", ".fna", ".bq"}
)

// Stem strips the directory, a compression suffix and a record-format
// suffix from path: "dir/s1_R1.fq.gz" → "s1_R1".
func Stem(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, ext := range compressionExts {
		if strings.HasSuffix(lower, ext) {
			name, lower = name[:len(name)-len(ext)], lower[:len(lower)-len(ext)]
			break
		}
	}
	for _, ext := range recordExts {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	if name == "" || name == "-" {
		return "stdin"
	}
	return name
}

// DeriveOutput names an output next to input with a new extension.
func DeriveOutput(input, ext string) string {
	return filepath.Join(filepath.Dir(input), Stem(input)+"."+ext)
}

// SplitPaths returns {prefix}_R1.{ext}{comp} and {prefix}_R2.{ext}{comp};
// comp is a compression suffix such as ".gz" or "".
func SplitPaths(prefix, ext, comp string) (string, string) {
	return fmt.Sprintf("%s_R1.%s%s", prefix, ext, comp), fmt.Sprintf("%s_R2.%s%s", prefix, ext, comp)
}
