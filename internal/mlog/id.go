package mlog

import "github.com/google/uuid"

// FormatID formats an entity or writer ID for logging.
//
// Writer IDs are UUIDs, which are shortened to their first 8 characters.
// Entity IDs are chosen by the application and are shown in full.
func FormatID(id string) string {
	if _, err := uuid.Parse(id); err == nil && len(id) == 36 {
		return id[:8]
	}

	return id
}
