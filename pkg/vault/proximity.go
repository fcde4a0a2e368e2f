package vault

import (
	"path/filepath"
	"sort"
	"strings"
)

// CalculateDistance returns the directory-tree hop count between two
// documents: 0 when they share a directory, otherwise the number of
// up- and down-traversal segments between their directories.
func CalculateDistance(a, b string) int {
	dirA := filepath.Dir(a)
	dirB := filepath.Dir(b)

	if dirA == dirB {
		return 0
	}

	rel, err := filepath.Rel(dirA, dirB)
	if err != nil {
		// Different roots (e.g. on Windows); treat as maximally distant.
		segsA := strings.Count(strings.Trim(dirA, string(filepath.Separator)), string(filepath.Separator)) + 1
		segsB := strings.Count(strings.Trim(dirB, string(filepath.Separator)), string(filepath.Separator)) + 1
		return segsA + segsB
	}

	return len(strings.Split(rel, string(filepath.Separator)))
}

// RankedFile pairs a document with its distance from the current file.
type RankedFile struct {
	Path     string
	Distance int
}

// RankFilesByProximity orders files by tree distance from current,
// excluding current itself. Ties break lexicographically by path so the
// output is deterministic.
func RankFilesByProximity(current string, files []string) []RankedFile {
	ranked := make([]RankedFile, 0, len(files))
	for _, f := range files {
		if f == current {
			continue
		}
		ranked = append(ranked, RankedFile{Path: f, Distance: CalculateDistance(current, f)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].Path < ranked[j].Path
	})

	return ranked
}
