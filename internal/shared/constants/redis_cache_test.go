package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeys(t *testing.T) {
	assert.Equal(t, "tiquetera:catalogs:snapshot:default", BuildCatalogSnapshotKey(""))
	assert.Equal(t, "tiquetera:catalogs:snapshot:api.example.com", BuildCatalogSnapshotKey("api.example.com"))
	assert.Equal(t, "tiquetera:session:default", BuildSessionKey(""))
	assert.Equal(t, "tiquetera:session:work", BuildSessionKey("work"))
	assert.Equal(t, "tiquetera:ratelimit:10.0.0.1:auth", BuildRateLimitKey("10.0.0.1", "auth"))
}
