package client

import (
	"strings"

	"github.com/whisper-im/whisper/internal/models"
)

func isTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// reconcile merges an authoritative message into a chat's message list.
// All optimistic (temp-id) entries are removed, then the authoritative
// message is appended unless its id is already present. The merge is
// idempotent: applying the same message twice leaves exactly one entry, and
// an optimistic entry and its resolved authoritative entry are never visible
// together.
func reconcile(list []models.Message, msg models.Message) []models.Message {
	merged := make([]models.Message, 0, len(list)+1)
	for _, m := range list {
		if !isTempID(m.ID) {
			merged = append(merged, m)
		}
	}
	for _, m := range merged {
		if m.ID == msg.ID {
			return merged
		}
	}
	return append(merged, msg)
}
