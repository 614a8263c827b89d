package utils_test

import (
	"testing"

	"github.com/jrsteele09/nccc-portal-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	type profile struct{ Name string }

	require.Equal(t, profile{}, utils.Value[profile](nil))
	require.Equal(t, profile{Name: "a"}, utils.Value(&profile{Name: "a"}))
	require.Equal(t, 0, utils.Value[int](nil))
}
