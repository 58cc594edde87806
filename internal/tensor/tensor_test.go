package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTensor_AtSet(t *testing.T) {
	x := New(2, 3, 4)
	require.Equal(t, 24, x.Len())

	x.Set(0.5, 1, 2, 3)
	require.Equal(t, float32(0.5), x.At(1, 2, 3))
	require.Equal(t, float32(0.5), x.Data[len(x.Data)-1])
	require.Equal(t, float32(0), x.At(0, 0, 0))
}

func TestTensor_FromData(t *testing.T) {
	_, err := FromData(make([]float32, 5), 2, 3)
	require.Error(t, err)

	x, err := FromData([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	require.Equal(t, float32(6), x.At(1, 2))
}

func TestTensor_Index(t *testing.T) {
	x, err := FromData([]float32{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)

	row, err := x.Index(1)
	require.NoError(t, err)
	require.Equal(t, []int{2}, row.Shape)
	require.Equal(t, []float32{3, 4}, row.Data)

	_, err = x.Index(3)
	require.Error(t, err)
}

func TestConcat(t *testing.T) {
	a, err := FromData([]float32{1, 1, 1, 1}, 1, 2, 2)
	require.NoError(t, err)
	b := New(2, 2, 2)
	for i := range b.Data {
		b.Data[i] = 2
	}

	c, err := Concat([]*Tensor{a, b})
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 2}, c.Shape)
	require.Equal(t, float32(1), c.At(0, 1, 1))
	require.Equal(t, float32(2), c.At(2, 0, 0))

	_, err = Concat([]*Tensor{a, New(1, 3, 2)})
	require.Error(t, err)

	_, err = Concat(nil)
	require.Error(t, err)
}
