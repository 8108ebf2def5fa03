package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MONGODB_URI", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.StorageDriver)
	assert.Equal(t, "thing_counter", cfg.Mongo.DatabaseName)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
}

func TestLoadConfig_Firestore(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverFirestore)
	t.Setenv("FIREBASE_PROJECT_ID", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("FIREBASE_PROJECT_ID", "thing-counter-demo")
	t.Setenv("FIREBASE_API_KEY", "public-key")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "thing-counter-demo", cfg.Firebase.ProjectID)
	assert.Equal(t, "thing-counter-demo", cfg.Firebase.Web.ProjectID)
	assert.Equal(t, "public-key", cfg.Firebase.Web.APIKey)
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{StorageDriver: "sqlite"}
	assert.Error(t, cfg.Validate())
}
