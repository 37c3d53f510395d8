package models

// SharedAccess is a directed grant: SharedWithEmail may read every object in
// OwnerEmail's namespace.
type SharedAccess struct {
	ID              int64  `json:"id"`
	OwnerEmail      string `json:"owner_email"`
	SharedWithEmail string `json:"shared_with_email"`
}
