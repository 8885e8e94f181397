// Package policy decides what a viewer may see and change. Every function
// here is pure; callers load the records and act on the decision.
package policy

import "blogspace/internal/models"

// Access describes how a viewer relates to a post.
type Access int

const (
	// AccessNone means the post must be treated as absent.
	AccessNone Access = iota
	// AccessPublic is read-only access to a published post.
	AccessPublic
	// AccessOwner is the post's author.
	AccessOwner
	// AccessAdmin is moderation access to any post.
	AccessAdmin
)

// PostAccess returns the strongest access the viewer holds on post.
func PostAccess(post *models.Post, viewer *models.Viewer) Access {
	if post == nil {
		return AccessNone
	}
	switch {
	case viewer.IsAdmin():
		return AccessAdmin
	case viewer != nil && viewer.ID != "" && viewer.ID == post.AuthorID:
		return AccessOwner
	case post.IsPublished():
		return AccessPublic
	default:
		return AccessNone
	}
}

// CanView reports whether viewer may observe post.
func CanView(post *models.Post, viewer *models.Viewer) bool {
	return PostAccess(post, viewer) != AccessNone
}

// CanModifyPost reports whether viewer may edit or delete post.
func CanModifyPost(post *models.Post, viewer *models.Viewer) bool {
	access := PostAccess(post, viewer)
	return access == AccessOwner || access == AccessAdmin
}

// CanDeleteComment reports whether viewer may remove comment.
func CanDeleteComment(comment *models.Comment, viewer *models.Viewer) bool {
	if comment == nil || viewer == nil {
		return false
	}
	return viewer.IsAdmin() || (viewer.ID != "" && viewer.ID == comment.AuthorID)
}

// CanEditComment reports whether viewer may rewrite comment. Admins moderate
// by deleting, not editing.
func CanEditComment(comment *models.Comment, viewer *models.Viewer) bool {
	return comment != nil && viewer != nil && viewer.ID != "" && viewer.ID == comment.AuthorID
}

// ListScope is CanView expressed as a query restriction: admins see every
// post, anyone else sees published posts plus those authored by ownerID.
// An empty ownerID means published only.
func ListScope(viewer *models.Viewer) (all bool, ownerID string) {
	if viewer.IsAdmin() {
		return true, ""
	}
	if viewer != nil {
		return false, viewer.ID
	}
	return false, ""
}
