package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateReservationID(t *testing.T) {
	id := GenerateReservationID()
	require.Len(t, id, 20)
	require.Regexp(t, `^RES-[0-9a-f]{16}$`, id)
	require.NotEqual(t, id, GenerateReservationID())
}

func TestCalculatePagination(t *testing.T) {
	p := CalculatePagination(2, 10, 25)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 10, p.PerPage)
	require.Equal(t, 25, p.TotalCount)
	require.Equal(t, 3, p.TotalPages)

	p = CalculatePagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 1, p.TotalPages)
}

func TestGetOffset(t *testing.T) {
	require.Equal(t, 0, GetOffset(1, 20))
	require.Equal(t, 20, GetOffset(2, 20))
	require.Equal(t, 0, GetOffset(0, 20))
}
