package auth

import "fmt"

// ListingScope returns the record role a caller is limited to when listing
// users. An empty role means no filter.
func ListingScope(r Role) (Role, error) {
	switch r.Tier() {
	case TierFull:
		return "", nil
	case TierRestricted:
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("%w: role %q cannot list users", ErrForbidden, r)
	}
}

// RequireMutation guards create, update and delete.
func RequireMutation(r Role) error {
	if !r.CanMutate() {
		return fmt.Errorf("%w: role %q cannot modify users", ErrForbidden, r)
	}
	return nil
}
