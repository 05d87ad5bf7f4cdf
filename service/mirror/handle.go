package mirror

import "time"

// RootHandleID keys the persisted root handle.
const RootHandleID = "root"

// Handle records the mirrored root across restarts.
type Handle struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	SavedAt time.Time `json:"savedAt"`
}

// HandleID is the dao key selector for Handle.
func HandleID(h *Handle) string { return h.ID }
