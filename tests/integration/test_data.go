//go:build integration

package integration

import (
	"fmt"
	"strconv"
	"time"
)

// TestFingerprint returns a unique value in the fingerprint format.
// suffix must be 1 to 13 lowercase letters or digits.
func TestFingerprint(suffix string) string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + suffix
}

// TestFriendEmail generates a unique allowlist email using timestamp
func TestFriendEmail(suffix string) string {
	return fmt.Sprintf("friend-%d-%s@example.com", time.Now().UnixNano(), suffix)
}

// Today is the UTC calendar date used as the usage key
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
