// Package sqlutil provides identifier helpers for GoShard.
package sqlutil

import (
	"regexp"
	"strconv"
)

// validIdentifierRegex restricts identifiers to alphanumeric and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid table or column identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// ShardTableName returns the physical table name for shard index idx of a
// logical table, e.g. ("orders", 3) -> "orders_3".
// Returns an error if the logical name contains invalid characters.
func ShardTableName(table string, idx int) (string, error) {
	if !IsValidIdentifier(table) {
		return "", &InvalidIdentifierError{Name: table}
	}
	return table + "_" + strconv.Itoa(idx), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
