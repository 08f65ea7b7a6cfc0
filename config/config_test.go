package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("ASYNC_BROKER_ADDRESS", "redis:6379")
	t.Setenv("REDIS_ADDR", "")

	conf, err := ParseConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", conf.RedisAddr)
	assert.Equal(t, 60*time.Second, conf.SuggestionTimeout)
	assert.Equal(t, 5*time.Second, conf.ImagePollInterval)
	assert.Equal(t, 60, conf.ImagePollMaxAttempts)
	assert.False(t, conf.StorageConfigured())
}

func TestParseConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("SUGGESTION_TIMEOUT", "soon")

	_, err := ParseConfig()
	assert.Error(t, err)
}

func TestStorageConfigured(t *testing.T) {
	conf := Config{R2AccountID: "acc", R2AccessKeyID: "key", R2AccessKeySecret: "secret", R2BucketName: "bucket"}
	assert.True(t, conf.StorageConfigured())
	conf.R2BucketName = ""
	assert.False(t, conf.StorageConfigured())
}
