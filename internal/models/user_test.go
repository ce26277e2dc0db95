package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPhoneNumber(t *testing.T) {
	assert.True(t, ValidPhoneNumber("+923001234567"))
	assert.False(t, ValidPhoneNumber("03001234567"))
	assert.False(t, ValidPhoneNumber("+92300123456"))
	assert.False(t, ValidPhoneNumber("+9230012345678"))
	assert.False(t, ValidPhoneNumber("+913001234567"))
}

func TestUserEffectivePlan(t *testing.T) {
	pro := PlanPro
	approved := ApprovalApproved
	pending := ApprovalPending

	var u User
	plan, ok := u.EffectivePlan()
	assert.Equal(t, PlanFree, plan)
	assert.True(t, ok, "free plan is served without approval")

	u.SelectedPlan = &pro
	u.ApprovalStatus = &pending
	plan, ok = u.EffectivePlan()
	assert.Equal(t, PlanPro, plan)
	assert.False(t, ok)

	u.ApprovalStatus = &approved
	_, ok = u.EffectivePlan()
	assert.True(t, ok)
}

func TestPreferencesScan(t *testing.T) {
	var p Preferences
	require.NoError(t, p.Scan(nil))
	assert.True(t, p.Notifications.Email)

	raw, err := json.Marshal(Preferences{Categories: []string{"design"}})
	require.NoError(t, err)
	require.NoError(t, p.Scan(raw))
	assert.Equal(t, []string{"design"}, p.Categories)
	assert.False(t, p.Notifications.Email)

	assert.Error(t, p.Scan(42))
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	short := "A"
	badPhone := "12345"
	req := UpdateProfileRequest{Name: &short, PhoneNumber: &badPhone}
	assert.Len(t, req.Validate(), 2)

	name := "Ayesha"
	phone := "+923001234567"
	req = UpdateProfileRequest{Name: &name, PhoneNumber: &phone}
	assert.Empty(t, req.Validate())
}
