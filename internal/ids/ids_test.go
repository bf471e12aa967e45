package ids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsKSUID(t *testing.T) {
	id := New()
	_, err := ksuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, New())
}

func TestNewUserID_IsUUID(t *testing.T) {
	_, err := uuid.Parse(NewUserID())
	assert.NoError(t, err)
}
