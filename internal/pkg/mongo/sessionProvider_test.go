package mongo

import (
	"testing"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionProvider(t *testing.T) {
	cmdapp.Config.Set("mongo.url", "mongodb://mongo:27017")
	defer cmdapp.Config.Set("mongo.url", "")
	pr, err := NewSessionProvider()
	require.Nil(t, err)
	assert.Equal(t, "mongodb://mongo:27017", pr.URL)
}

func TestNewSessionProvider_FailsOnNoURL(t *testing.T) {
	cmdapp.Config.Set("mongo.url", "")
	_, err := NewSessionProvider()
	assert.NotNil(t, err)
}
