package storefake_test

import (
	"testing"

	"github.com/jrsteele09/nccc-portal-client/credentials/kvtest"
	"github.com/jrsteele09/nccc-portal-client/credentials/storefake"
)

func TestFakeKV(t *testing.T) {
	kvtest.Run(t, storefake.NewFakeKV())
}
