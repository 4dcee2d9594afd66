package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-roleplay-desk/internal/utils"
)

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"analytical", "skeptical"}, utils.SplitList(" analytical, ,skeptical ", ","))
	require.Nil(t, utils.SplitList("  ", ","))
}

func TestPointers(t *testing.T) {
	require.Nil(t, utils.PtrOrNil(""))
	require.Equal(t, "x", *utils.PtrOrNil("x"))
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, 3, utils.Value(utils.Ptr(3)))
}
