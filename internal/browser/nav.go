package browser

import "strings"

// closestItem returns the index of the item containing text that is nearest
// to pos. Ties go to the earlier item.
func closestItem(items []string, text string, pos int) (int, bool) {
	best, bestDist := -1, 0
	for i, it := range items {
		if !strings.Contains(it, text) {
			continue
		}
		d := pos - i
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// nextWithPrefix finds the first item after cursor starting with prefix,
// wrapping to the start of the list.
func nextWithPrefix(items []string, prefix string, cursor int) (int, bool) {
	for i := cursor + 1; i < len(items); i++ {
		if strings.HasPrefix(items[i], prefix) {
			return i, true
		}
	}
	for i, it := range items {
		if strings.HasPrefix(it, prefix) {
			return i, true
		}
	}
	return 0, false
}

// prevWithPrefix finds the last item before cursor starting with prefix,
// wrapping to the end of the list. The item under the cursor only matches
// when nothing else does.
func prevWithPrefix(items []string, prefix string, cursor int) (int, bool) {
	if cursor > len(items) {
		cursor = len(items)
	}
	for i := cursor - 1; i >= 0; i-- {
		if strings.HasPrefix(items[i], prefix) {
			return i, true
		}
	}
	for i := len(items) - 1; i > cursor; i-- {
		if strings.HasPrefix(items[i], prefix) {
			return i, true
		}
	}
	if cursor >= 0 && cursor < len(items) && strings.HasPrefix(items[cursor], prefix) {
		return cursor, true
	}
	return 0, false
}
