package metacommon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantCodes(t *testing.T) {
	assert.True(t, IsValidTenantCode("ACME"))
	assert.True(t, IsValidTenantCode("A1_B2"))
	assert.True(t, IsValidTenantCode("T"))
	assert.False(t, IsValidTenantCode(""))
	assert.False(t, IsValidTenantCode("acme"))
	assert.False(t, IsValidTenantCode("1ACME"))
	assert.False(t, IsValidTenantCode("ACME-CORP"))
	assert.False(t, IsValidTenantCode("A234567890123456789012345678901234567890"))
}

func TestAttrNames(t *testing.T) {
	assert.True(t, IsValidAttrName("rodent_type"))
	assert.True(t, IsValidAttrName("dataset.class"))
	assert.True(t, IsValidAttrName("X"))
	assert.False(t, IsValidAttrName(""))
	assert.False(t, IsValidAttrName("_private"))
	assert.False(t, IsValidAttrName("9lives"))
	assert.False(t, IsValidAttrName("has space"))

	assert.True(t, IsReservedAttrName("trac_create_time"))
	assert.False(t, IsReservedAttrName("tracking_id"))
}

func TestResourceAndAppCodes(t *testing.T) {
	assert.True(t, IsValidResourceKey("PRIMARY_STORAGE"))
	assert.False(t, IsValidResourceKey("primary"))
	assert.True(t, IsValidApplicationCode("web-client"))
	assert.False(t, IsValidApplicationCode("WebClient"))
}
