package constants

// ItemStatus is the canonical processing status for an inbox item.
type ItemStatus string

// Stable values (these exact strings cross the WebSocket surface).
const (
	ItemStatusNew        ItemStatus = "NEW"        // not yet processed, or returned after cancellation
	ItemStatusProcessing ItemStatus = "PROCESSING" // classify or enrich in progress
	ItemStatusProcessed  ItemStatus = "PROCESSED"  // routed or archived by the backend
	ItemStatusError      ItemStatus = "ERROR"      // terminal failure for this run
)

// IsValidItemStatus reports whether s is one of the canonical statuses.
func IsValidItemStatus(s string) bool {
	switch ItemStatus(s) {
	case ItemStatusNew, ItemStatusProcessing, ItemStatusProcessed, ItemStatusError:
		return true
	default:
		return false
	}
}
