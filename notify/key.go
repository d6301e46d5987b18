package notify

import "fmt"

// ConversationKeyFor derives the deterministic lookup key tying a
// conversation to the entity it belongs to. All call sites must go through
// this function so the same (linkType, linkID) always lands in the same
// conversation.
func ConversationKeyFor(linkType, linkID string) string {
	return fmt.Sprintf("%s-%s", linkType, linkID)
}
