package notify

import "strings"

// FormatList joins items as a natural English "and"-list:
//
//	[]                -> ""
//	[a]               -> "a"
//	[a b]             -> "a and b"
//	[a b c]           -> "a, b, and c"
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
