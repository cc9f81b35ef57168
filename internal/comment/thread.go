// Package comment holds the rules of the append-only ticket thread.
package comment

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-resolution/internal/access"
	"github.com/spec-kit/ticket-resolution/internal/domain"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// New validates and builds a comment for appending. Content must be non-empty
// after trimming; comments are immutable once appended.
func New(ticketID string, author domain.Identity, content string, isInternal bool, now time.Time) (*domain.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("comment content must not be empty", map[string]any{
			"field": "content",
		})
	}
	return &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   author.ActorID,
		AuthorRole: author.Role,
		Content:    trimmed,
		IsInternal: isInternal,
		CreatedAt:  now,
	}, nil
}

// Visible filters out internal comments unless the viewer's role may see
// them, preserving thread order.
func Visible(comments []domain.Comment, viewer domain.Role) []domain.Comment {
	if access.Authorize(viewer, access.ActionViewInternalComments, nil, "") {
		return comments
	}
	visible := make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsInternal {
			continue
		}
		visible = append(visible, c)
	}
	return visible
}

// Sort orders the thread ascending by CreatedAt, ties broken by insertion
// order.
func Sort(comments []domain.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].Seq < comments[j].Seq
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
