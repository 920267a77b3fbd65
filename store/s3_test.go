//go:build unit

package store

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestCoerceAWSError(t *testing.T) {
	t.Run("missing key becomes not found", func(t *testing.T) {
		err := coerceAWSError("softnpu", "3203c51c", "npuzone", &types.NoSuchKey{})
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing bucket becomes not found", func(t *testing.T) {
		err := coerceAWSError("softnpu", "3203c51c", "npuzone", &types.NoSuchBucket{})
		assert.True(t, IsNotFound(err))
	})

	t.Run("head miss becomes not found", func(t *testing.T) {
		err := coerceAWSError("softnpu", "3203c51c", "npuzone", &types.NotFound{})
		assert.True(t, IsNotFound(err))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cause := fmt.Errorf("throttled")
		err := coerceAWSError("softnpu", "3203c51c", "npuzone", cause)
		assert.Equal(t, cause, err)
		assert.False(t, IsNotFound(err))
	})
}
