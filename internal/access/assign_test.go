package access

import (
	"testing"

	"freezybe/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAssignAccessLevel(t *testing.T) {
	plain := models.Resource{Title: "Data Entry Clerk", Location: "Lahore"}
	senior := models.Resource{Title: "Senior Go Engineer"}
	bigCo := models.Resource{Title: "Support Agent", Company: "Shopify Inc."}
	remote := models.Resource{Title: "Writer", Location: "Remote - Worldwide"}

	assert.Equal(t, models.AccessFree, AssignAccessLevel(senior, 0, 10))
	assert.Equal(t, models.AccessFree, AssignAccessLevel(senior, 6, 10), "60% boundary stays free")
	assert.Equal(t, models.AccessPro, AssignAccessLevel(senior, 7, 10))
	assert.Equal(t, models.AccessPro, AssignAccessLevel(bigCo, 8, 10))
	assert.Equal(t, models.AccessPro, AssignAccessLevel(remote, 9, 10))
	assert.Equal(t, models.AccessFree, AssignAccessLevel(plain, 8, 10))
	assert.Equal(t, models.AccessEnterprise, AssignAccessLevel(plain, 19, 20))
	assert.Equal(t, models.AccessFree, AssignAccessLevel(plain, 0, 0))
}

func TestTierDefaults(t *testing.T) {
	featured, priority := TierDefaults(models.AccessEnterprise)
	assert.True(t, featured)
	assert.Equal(t, 100, priority)

	featured, priority = TierDefaults(models.AccessPro)
	assert.False(t, featured)
	assert.Equal(t, 80, priority)

	_, priority = TierDefaults(models.AccessFree)
	assert.Equal(t, 60, priority)
}
