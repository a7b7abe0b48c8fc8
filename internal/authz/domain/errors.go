package domain

import (
	"errors"
	"fmt"
)

// ErrGroupNotFound indicates a group lookup by name found nothing.
var ErrGroupNotFound = errors.New("group not found")

// ErrUserNotFound indicates a principal lookup by id found nothing.
var ErrUserNotFound = errors.New("user not found")

// InvalidPermissionFormatError indicates a permission string does not parse
// as "<app_label>.<action>_<model_name>". This is a programming error in the
// calling code, not an access denial.
type InvalidPermissionFormatError struct {
	Value string
}

func (e InvalidPermissionFormatError) Error() string {
	return fmt.Sprintf("invalid permission %q: expected <app_label>.<action>_<model_name>", e.Value)
}

// PermissionTypeMismatchError indicates the object passed to an object-level
// check is not of the type the permission string targets. Programming error.
type PermissionTypeMismatchError struct {
	Want TypeID
	Got  TypeID
}

func (e PermissionTypeMismatchError) Error() string {
	return fmt.Sprintf("object type mismatch: permission targets %s, object is %s", e.Want, e.Got)
}
