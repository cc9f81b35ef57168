package comment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-resolution/internal/domain"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestNewTrimsContent(t *testing.T) {
	author := domain.Identity{ActorID: "cust-1", Role: domain.RoleCustomer}

	c, err := New("t-1", author, "  hello there  ", false, t0)
	require.NoError(t, err)
	assert.Equal(t, "hello there", c.Content)
	assert.Equal(t, "cust-1", c.AuthorID)
	assert.Equal(t, domain.RoleCustomer, c.AuthorRole)
	assert.Equal(t, t0, c.CreatedAt)
}

func TestNewRejectsBlankContent(t *testing.T) {
	author := domain.Identity{ActorID: "agent-1", Role: domain.RoleAgent}

	_, err := New("t-1", author, "   ", true, t0)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, "content", domainErr.Details["field"])
}

func TestVisibleFiltersInternalForCustomers(t *testing.T) {
	thread := []domain.Comment{
		{ID: "c-1", Content: "public", IsInternal: false},
		{ID: "c-2", Content: "internal note", IsInternal: true},
		{ID: "c-3", Content: "reply", IsInternal: false},
	}

	forCustomer := Visible(thread, domain.RoleCustomer)
	require.Len(t, forCustomer, 2)
	for _, c := range forCustomer {
		assert.False(t, c.IsInternal)
	}

	forAgent := Visible(thread, domain.RoleAgent)
	assert.Len(t, forAgent, 3)

	forUnknown := Visible(thread, domain.Role("GUEST"))
	assert.Len(t, forUnknown, 2)
}

func TestSortOrdersByCreatedAtThenSeq(t *testing.T) {
	thread := []domain.Comment{
		{ID: "c-3", Seq: 3, CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "c-2", Seq: 2, CreatedAt: t0},
		{ID: "c-1", Seq: 1, CreatedAt: t0},
	}

	Sort(thread)
	assert.Equal(t, "c-1", thread[0].ID)
	assert.Equal(t, "c-2", thread[1].ID)
	assert.Equal(t, "c-3", thread[2].ID)
}
