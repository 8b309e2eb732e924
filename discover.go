package meshfeat

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/hupe1980/meshfeat/blobstore"
)

var indexNameRE = regexp.MustCompile(`^indexes/indexes_p(\d+)_r(\d+)\.txt$`)

func metadataPath(part int) string {
	return fmt.Sprintf("features/metadata_p%02d.txt", part)
}

func indexPath(run, part int) string {
	return fmt.Sprintf("indexes/indexes_p%02d_r%03d.txt", part, run)
}

func featuresPath(run, part int) string {
	return fmt.Sprintf("features/features_p%02d_r%03d.npy", part, run)
}

// DiscoverPartitions counts the partitions of a dataset by the number of
// run-0 index files.
func DiscoverPartitions(ctx context.Context, store blobstore.BlobStore) (int, error) {
	names, err := store.List(ctx, "indexes/indexes_p")
	if err != nil {
		return 0, err
	}

	n := 0
	for _, name := range names {
		m := indexNameRE.FindStringSubmatch(name)
		if m != nil && m[2] == "000" {
			n++
		}
	}
	return n, nil
}

// DiscoverRuns returns the run ids indexed for partition 0, ascending.
func DiscoverRuns(ctx context.Context, store blobstore.BlobStore) ([]int, error) {
	names, err := store.List(ctx, "indexes/indexes_p00_r")
	if err != nil {
		return nil, err
	}

	var runs []int
	for _, name := range names {
		m := indexNameRE.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		part, _ := strconv.Atoi(m[1])
		if part != 0 {
			continue
		}
		run, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	slices.Sort(runs)
	return slices.Compact(runs), nil
}
