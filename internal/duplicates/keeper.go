package duplicates

import (
	"fmt"
	"sort"

	"github.com/marco/mediaVault/internal/config"
	"github.com/marco/mediaVault/internal/media"
)

// less reports whether a should be kept in preference to b. Every
// comparator ends on the path so the order is total.
type less func(a, b *media.File) bool

func comparator(criteria string) (less, error) {
	switch criteria {
	case config.KeepHighestQuality, config.KeepLargest:
		return func(a, b *media.File) bool {
			if a.Size != b.Size {
				return a.Size > b.Size
			}
			return olderThenPath(a, b)
		}, nil
	case config.KeepSmallest:
		return func(a, b *media.File) bool {
			if a.Size != b.Size {
				return a.Size < b.Size
			}
			return olderThenPath(a, b)
		}, nil
	case config.KeepOldest:
		return func(a, b *media.File) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
			return largerThenPath(a, b)
		}, nil
	case config.KeepNewest:
		return func(a, b *media.File) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
			return largerThenPath(a, b)
		}, nil
	default:
		return nil, fmt.Errorf("unknown keep criteria %q", criteria)
	}
}

func olderThenPath(a, b *media.File) bool {
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.Before(b.ModTime)
	}
	return a.Path < b.Path
}

func largerThenPath(a, b *media.File) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.Path < b.Path
}

// SelectKeeper picks the file to keep from members. The result depends only
// on the members and criteria, never on their order; members is not
// modified. Candidates come back in preference order.
func SelectKeeper(members []*media.File, criteria string) (keeper *media.File, candidates []*media.File, err error) {
	if len(members) == 0 {
		return nil, nil, fmt.Errorf("empty group")
	}
	cmp, err := comparator(criteria)
	if err != nil {
		return nil, nil, err
	}

	ordered := make([]*media.File, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool { return cmp(ordered[i], ordered[j]) })

	return ordered[0], ordered[1:], nil
}
