package task

import internalstrings "github.com/amonks/tickler/internal/strings"

func normalizeTitle(title string) string {
	return internalstrings.CollapseSpace(title)
}
