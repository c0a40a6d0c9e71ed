package domain

import "time"

// Project groups tasks under an owner with a member set. The owner is fixed
// at creation and is implicitly authorized as if a member. ManagerID is
// optional and must reference an admin or manager user when set.
type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	ManagerID   string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether the user is in the project's member set.
// Ownership does not count as membership here; callers that want the
// implicit-owner rule should check OwnerID as well.
func (p Project) HasMember(userID string) bool {
	for _, memberID := range p.MemberIDs {
		if memberID == userID {
			return true
		}
	}
	return false
}

// CanAccess reports whether the user is the owner or a member.
func (p Project) CanAccess(userID string) bool {
	return p.OwnerID == userID || p.HasMember(userID)
}
