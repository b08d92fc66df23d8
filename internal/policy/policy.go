// Package policy decides which caller may do what with a URL record.
package policy

import (
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

// Action is an operation a caller wants to perform.
type Action int

const (
	ActionView Action = iota
	ActionEdit
	ActionDelete
	ActionCreate
	// ActionList is the view of the caller's own collection; it never needs a record.
	ActionList
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionCreate:
		return "create"
	case ActionList:
		return "list"
	}

	return "unknown"
}

// CanAccess returns nil when userID may perform action on record, otherwise
// the denial reason: models.ErrMustBeLoggedIn, models.ErrNotFound or
// models.ErrForbidden. An empty userID means an anonymous caller and a nil
// record means the record does not exist.
func CanAccess(action Action, userID string, record *models.URLRecord) error {
	if userID == "" {
		return models.ErrMustBeLoggedIn
	}

	switch action {
	case ActionCreate, ActionList:
		return nil
	}

	if record == nil {
		return models.ErrNotFound
	}
	if record.OwnerID != userID {
		return models.ErrForbidden
	}

	return nil
}
