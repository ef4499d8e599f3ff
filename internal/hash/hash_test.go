package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// RFC 3720 check value for "123456789".
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, "4waSgw==", CRC32CBase64([]byte("123456789")))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Key(""))
	k := Key("s3://bucket/data/annotations.json")
	assert.Len(t, k, 32)
	assert.Equal(t, k, Key("s3://bucket/data/annotations.json"))
	assert.NotEqual(t, k, Key("s3://bucket/data/other.json"))
}
