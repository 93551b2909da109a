package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli"
)

func TestBaseFlags(t *testing.T) {
	assert := assert.New(t)

	flags := mergeFlags(baseFlags(), dbFlags(), serviceFlags())
	flagMap := map[string]cli.Flag{}
	for _, f := range flags {
		flagMap[f.GetName()] = f
	}

	expected := []string{"workers", "dbUri", "dbName", "bucket", "bucketType", "port, p", "rpcAddress", "corsOrigin"}
	for _, n := range expected {
		_, ok := flagMap[n]
		assert.True(ok, n)
	}
}
