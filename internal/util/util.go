package util

import (
	"strings"
	"time"
)

func StringPtr(s string) *string {
	return &s
}

// NewDottedOrder builds one segment of a run's dotted_order: the run's start
// time with separators stripped, followed by its id.
func NewDottedOrder(id string) string {
	s := time.Now().UTC().Format(time.RFC3339Nano)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, ".", "")
	return s + id
}
