package pathfind

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func square() Polygon {
	return Polygon{Vertices: []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}}
}

func TestPolygonContains(t *testing.T) {
	p := square()
	require.True(t, p.Contains(2, 2))
	require.False(t, p.Contains(10, 10))
}

func TestPolygonBounds(t *testing.T) {
	p := square()
	minX, minY, maxX, maxY := p.Bounds()
	require.Equal(t, 0.0, minX)
	require.Equal(t, 0.0, minY)
	require.Equal(t, 4.0, maxX)
	require.Equal(t, 4.0, maxY)
}

func TestToBoundedBlocksProducesBoundedCells(t *testing.T) {
	p := square()
	blocks := p.ToBoundedBlocks(1.0)
	require.NotEmpty(t, blocks)
	bounded := 0
	for _, b := range blocks {
		if b.Bounded {
			bounded++
		}
	}
	require.Greater(t, bounded, 0)
}

func TestGridBackendRoutesAcrossSquare(t *testing.T) {
	backend := NewGridBackend(square(), 1.0)
	path, err := backend.Route(Point{0.5, 0.5}, Point{3.5, 3.5})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(path), 2)
	require.Equal(t, Point{0.5, 0.5}, path[0])
	require.Equal(t, Point{3.5, 3.5}, path[len(path)-1])
}

func TestGridBackendRejectsOutsidePoint(t *testing.T) {
	backend := NewGridBackend(square(), 1.0)
	_, err := backend.Route(Point{-5, -5}, Point{1, 1})
	require.ErrorIs(t, err, ErrOutsidePolygon)
}

func TestTriangulateSquareProducesTwoTriangles(t *testing.T) {
	mesh, err := Triangulate(square())
	require.NoError(t, err)
	require.Len(t, mesh.Triangles, 2)
	require.Len(t, mesh.Adjacency[0], 1)
	require.Len(t, mesh.Adjacency[1], 1)
}

func TestTriangulateRejectsDegeneratePolygon(t *testing.T) {
	_, err := Triangulate(Polygon{Vertices: []Point{{0, 0}, {1, 0}}})
	require.ErrorIs(t, err, ErrDegeneratePolygon)
}

func TestTriangulateLShapedPolygon(t *testing.T) {
	lShape := Polygon{Vertices: []Point{
		{0, 0}, {2, 0}, {2, 2}, {4, 2}, {4, 4}, {0, 4},
	}}
	mesh, err := Triangulate(lShape)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(mesh.Triangles), 4)
}

func TestMeshBackendRoutesAcrossSquare(t *testing.T) {
	backend, err := NewMeshBackend(square())
	require.NoError(t, err)
	path, err := backend.Route(Point{1, 1}, Point{3, 3})
	require.NoError(t, err)
	require.Equal(t, Point{1, 1}, path[0])
	require.Equal(t, Point{3, 3}, path[len(path)-1])
}

func TestMeshBackendRejectsOutsidePoint(t *testing.T) {
	backend, err := NewMeshBackend(square())
	require.NoError(t, err)
	_, err = backend.Route(Point{100, 100}, Point{1, 1})
	require.ErrorIs(t, err, ErrOutsidePolygon)
}
