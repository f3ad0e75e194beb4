package gain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGain(t *testing.T) {
	_, err := New(-1)
	require.Error(t, err)

	g, err := New(0.5)
	require.NoError(t, err)
	defer g.Close()

	out, err := g.EstimateMagnitude(context.Background(), mat.NewDense(1, 3, []float64{2, 4, 0}))
	require.NoError(t, err)
	require.True(t, mat.Equal(mat.NewDense(1, 3, []float64{1, 2, 0}), out))
}
