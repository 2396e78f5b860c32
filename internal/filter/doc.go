/*
Package filter classifies command names against the configured pattern lists.

Patterns are literal strings except for two wildcards:

	*  matches zero or more characters
	?  matches exactly one character

Matching is case-sensitive and anchored: the whole name has to match.

A Policy composes the four lists (tracked, ignored, excluded, disabled). A
non-empty tracked list is authoritative for tracking decisions and the
ignored list is then not consulted.
*/
package filter
