package model

// Status controls the visibility of a post or comment. DELETED rows stay in
// storage but are excluded from every read path.
type Status int

const (
	StatusPublic  Status = 0 // visible to everyone, including guests
	StatusSemi    Status = 1 // visible to authenticated users
	StatusPrivate Status = 2 // visible to the creator only
	StatusDeleted Status = 3 // soft-deleted
)

func (s Status) String() string {
	switch s {
	case StatusPublic:
		return "PUBLIC"
	case StatusSemi:
		return "SEMI"
	case StatusPrivate:
		return "PRIVATE"
	case StatusDeleted:
		return "DELETED"
	}
	return "UNKNOWN"
}

// Valid reports whether s is a status a client may set on create or edit.
// DELETED is reserved for the delete operation.
func (s Status) Valid() bool {
	return s == StatusPublic || s == StatusSemi || s == StatusPrivate
}
