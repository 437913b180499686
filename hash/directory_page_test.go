package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryPage(t *testing.T) {
	t.Run("new directories point every slot at no bucket", func(t *testing.T) {
		directory := newDirectoryPage(3)

		assert.Equal(t, uint32(0), directory.GlobalDepth)
		assert.Equal(t, uint32(1), directory.size())
		assert.Equal(t, uint32(8), directory.maxSize())
		assert.Equal(t, int64(-1), directory.bucketPageId(0))
	})

	t.Run("hash to bucket index uses the low global depth bits", func(t *testing.T) {
		directory := newDirectoryPage(3)

		assert.Equal(t, uint32(0), directory.hashToBucketIndex(0b1101))

		directory.GlobalDepth = 2
		assert.Equal(t, uint32(0b01), directory.hashToBucketIndex(0b1101))
		assert.Equal(t, uint32(0b11), directory.hashToBucketIndex(0b1111))
	})

	t.Run("growing copies the lower half onto the upper half", func(t *testing.T) {
		directory := newDirectoryPage(3)
		directory.setBucketPageId(0, 7)
		directory.setLocalDepth(0, 0)

		directory.incrGlobalDepth()

		assert.Equal(t, uint32(1), directory.GlobalDepth)
		assert.Equal(t, int64(7), directory.bucketPageId(0))
		assert.Equal(t, int64(7), directory.bucketPageId(1))
		assert.Equal(t, uint32(0), directory.localDepth(1))
	})

	t.Run("cannot grow beyond max depth", func(t *testing.T) {
		directory := newDirectoryPage(1)

		directory.incrGlobalDepth()
		assert.Equal(t, uint32(1), directory.GlobalDepth)

		directory.incrGlobalDepth()
		assert.Equal(t, uint32(1), directory.GlobalDepth)
	})

	t.Run("split image index flips the top global depth bit", func(t *testing.T) {
		directory := newDirectoryPage(3)
		directory.GlobalDepth = 2

		assert.Equal(t, uint32(0b10), directory.getSplitImageIndex(0b00))
		assert.Equal(t, uint32(0b01), directory.getSplitImageIndex(0b11))
	})

	t.Run("can shrink only when no bucket is at global depth", func(t *testing.T) {
		directory := newDirectoryPage(3)
		assert.False(t, directory.canShrink())

		directory.setBucketPageId(0, 7)
		directory.incrGlobalDepth()
		assert.True(t, directory.canShrink())

		directory.setLocalDepth(0, 1)
		directory.setLocalDepth(1, 1)
		assert.False(t, directory.canShrink())

		directory.setLocalDepth(0, 0)
		directory.setLocalDepth(1, 0)
		directory.decrGlobalDepth()
		assert.Equal(t, uint32(0), directory.GlobalDepth)
		assert.False(t, directory.canShrink())
	})

	t.Run("local depth masks cover local depth bits", func(t *testing.T) {
		directory := newDirectoryPage(3)
		directory.GlobalDepth = 2
		directory.setLocalDepth(0, 2)
		directory.setLocalDepth(1, 1)

		assert.Equal(t, uint32(0b11), directory.globalDepthMask())
		assert.Equal(t, uint32(0b11), directory.localDepthMask(0))
		assert.Equal(t, uint32(0b1), directory.localDepthMask(1))
	})

	t.Run("local depth never passes global depth", func(t *testing.T) {
		directory := newDirectoryPage(3)
		directory.GlobalDepth = 1

		directory.incrLocalDepth(0)
		assert.Equal(t, uint32(1), directory.localDepth(0))

		directory.incrLocalDepth(0)
		assert.Equal(t, uint32(1), directory.localDepth(0))

		directory.decrLocalDepth(0)
		directory.decrLocalDepth(0)
		assert.Equal(t, uint32(0), directory.localDepth(0))
	})

	t.Run("verify integrity catches bad directories", func(t *testing.T) {
		directory := newDirectoryPage(3)
		directory.setBucketPageId(0, 7)
		assert.NoError(t, directory.verifyIntegrity())

		directory.incrGlobalDepth()
		assert.NoError(t, directory.verifyIntegrity())

		// split slot 1 off without repointing it
		directory.setLocalDepth(0, 1)
		directory.setLocalDepth(1, 1)
		assert.Error(t, directory.verifyIntegrity())

		directory.setBucketPageId(1, 8)
		assert.NoError(t, directory.verifyIntegrity())

		// disagreeing local depths for the same bucket page
		directory.setBucketPageId(1, 7)
		directory.setLocalDepth(1, 0)
		assert.Error(t, directory.verifyIntegrity())
	})
}
