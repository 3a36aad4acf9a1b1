package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStyle is returned by ParseStyle for unrecognized values.
var ErrUnknownStyle = errors.New("unknown notification style")

// Style selects how outdated packages are surfaced.
type Style string

const (
	StyleNone         Style = "none"
	StyleBadge        Style = "badge"
	StyleNotification Style = "notification"
	StyleBoth         Style = "both"
)

// Styles lists every valid style in display order.
var Styles = []Style{StyleNone, StyleBadge, StyleNotification, StyleBoth}

// ParseStyle converts s (case-insensitive) to a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleNone:
		return StyleNone, nil
	case StyleBadge:
		return StyleBadge, nil
	case StyleNotification:
		return StyleNotification, nil
	case StyleBoth:
		return StyleBoth, nil
	}
	return "", fmt.Errorf("%w %q (want none, badge, notification, or both)", ErrUnknownStyle, s)
}

// IncludesBadge reports whether the style shows a badge count.
func (s Style) IncludesBadge() bool {
	return s == StyleBadge || s == StyleBoth
}

// IncludesNotification reports whether the style sends banner notifications.
func (s Style) IncludesNotification() bool {
	return s == StyleNotification || s == StyleBoth
}
