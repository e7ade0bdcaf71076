package domain

// MergeStats summarises how a merge changed a collection.
type MergeStats struct {
	// Remote is the number of remote quotes in the result.
	Remote int

	// Kept is the number of local quotes that survived.
	Kept int

	// Dropped is the number of local quotes that did not survive.
	Dropped int
}

// Merge reconciles the local collection with a remote candidate list.
//
// The remote side always wins:
//  1. The result starts with the remote quotes in the order received.
//  2. A local quote survives only if no quote already in the result has the same Text.
//  3. Local quotes shadowed by a remote quote are dropped for good.
//
// Text is the only identity key. Category is never compared, so a remote quote
// silently replaces the category of a local quote with identical text.
// Repeated texts inside either input keep their first occurrence, which keeps the
// result free of duplicates and makes Merge idempotent for a fixed remote list.
func Merge(local, remote []Quote) []Quote {
	merged, _ := MergeWithStats(local, remote)
	return merged
}

// MergeWithStats is Merge plus counters describing the outcome.
func MergeWithStats(local, remote []Quote) ([]Quote, MergeStats) {
	merged := make([]Quote, 0, len(remote)+len(local))
	owned := make(map[string]struct{}, len(remote)+len(local))

	var stats MergeStats

	for _, q := range remote {
		if _, dup := owned[q.Text]; dup {
			continue
		}

		owned[q.Text] = struct{}{}
		merged = append(merged, q)
		stats.Remote++
	}

	for _, q := range local {
		if _, taken := owned[q.Text]; taken {
			stats.Dropped++
			continue
		}

		owned[q.Text] = struct{}{}
		merged = append(merged, q)
		stats.Kept++
	}

	return merged, stats
}
