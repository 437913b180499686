package util

import (
	"testing"

	"github.com/jobala/tembo/storage/disk"
	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	type record struct {
		Id   int
		Name string
	}

	t.Run("structs round trip through a page buffer", func(t *testing.T) {
		data, err := ToByteSlice(record{Id: 7, Name: "tembo"})
		assert.NoError(t, err)
		assert.Len(t, data, disk.PAGE_SIZE)

		decoded, err := ToStruct[record](data)
		assert.NoError(t, err)
		assert.Equal(t, record{Id: 7, Name: "tembo"}, decoded)
	})

	t.Run("rejects structs larger than a page", func(t *testing.T) {
		type blob struct {
			Data []byte
		}

		_, err := ToByteSlice(blob{Data: make([]byte, disk.PAGE_SIZE)})
		assert.Error(t, err)
	})
}
