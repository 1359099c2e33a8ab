package models

import (
	"testing"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFeedbackThreadUnreadRule(t *testing.T) {
	roles := []enums.Role{enums.RoleCustomer, enums.RoleAdmin, enums.RoleCustomerService}
	for _, last := range roles {
		for _, viewer := range roles {
			thread := FeedbackThread{LastReplierRole: last}
			assert.Equal(t, last != viewer, thread.IsUnreadFor(viewer), "last=%s viewer=%s", last, viewer)
		}
	}
}

func TestUserCanLogin(t *testing.T) {
	cases := []struct {
		disabled bool
		status   enums.UserStatus
		want     bool
	}{
		{false, enums.UserStatusApproved, true},
		{true, enums.UserStatusApproved, false},
		{false, enums.UserStatusPending, false},
		{false, enums.UserStatusRejected, false},
	}
	for _, tc := range cases {
		u := User{Disabled: tc.disabled, Status: tc.status}
		assert.Equal(t, tc.want, u.CanLogin(), "disabled=%v status=%s", tc.disabled, tc.status)
	}
}

func TestBeforeCreateAssignsID(t *testing.T) {
	order := Order{}
	assert.NoError(t, order.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, order.ID)

	fixed := uuid.New()
	preset := Order{ID: fixed}
	assert.NoError(t, preset.BeforeCreate(nil))
	assert.Equal(t, fixed, preset.ID)
}
