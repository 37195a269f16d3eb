package archive

import (
	"regexp"
	"strings"
)

var extensionPattern = regexp.MustCompile(`(?i)\.[0-9a-z]+$`)

// splitName splits an entry or file name into its base and extension.
// ok is false when there is no recognizable extension, or when nothing
// would be left of the base (dotfiles and names ending in a directory).
func splitName(name string) (base, ext string, ok bool) {
	loc := extensionPattern.FindStringIndex(name)
	if loc == nil {
		return "", "", false
	}
	base, ext = name[:loc[0]], name[loc[0]+1:]
	if base == "" || strings.HasSuffix(base, "/") {
		return base, ext, false
	}
	return base, ext, true
}
