package pathfind

// GridBackend routes across a polygon's bounded-block grid, suited to
// Manhattan-style layouts (spec §4.9, "polygon-to-grid").
type GridBackend struct {
	polygon   Polygon
	blockSize float64
	blocks    []Block
	cols      int
}

// NewGridBackend overlays a blockSize grid on polygon and returns a
// ready-to-use GridBackend.
func NewGridBackend(polygon Polygon, blockSize float64) *GridBackend {
	cols, _ := polygon.GridDimensions(blockSize)
	return &GridBackend{
		polygon:   polygon,
		blockSize: blockSize,
		blocks:    polygon.ToBoundedBlocks(blockSize),
		cols:      cols,
	}
}

// Route finds a waypoint sequence from start to end across bounded
// blocks using 4-connected A*.
func (g *GridBackend) Route(start, end Point) ([]Point, error) {
	if !g.polygon.Contains(start.X, start.Y) || !g.polygon.Contains(end.X, end.Y) {
		return nil, ErrOutsidePolygon
	}

	startIdx := g.blockContaining(start)
	endIdx := g.blockContaining(end)
	if startIdx < 0 || endIdx < 0 {
		return nil, ErrOutsidePolygon
	}

	path, ok := astarSearch(len(g.blocks), startIdx, endIdx, g.neighbours, g.center)
	if !ok {
		return nil, ErrNoPath
	}

	waypoints := make([]Point, 0, len(path)+2)
	waypoints = append(waypoints, start)
	for _, idx := range path {
		waypoints = append(waypoints, g.blocks[idx].Center())
	}
	waypoints = append(waypoints, end)
	return waypoints, nil
}

func (g *GridBackend) blockContaining(p Point) int {
	for i, b := range g.blocks {
		if b.Bounded && b.Contains(p.X, p.Y) {
			return i
		}
	}
	return -1
}

func (g *GridBackend) center(id int) Point { return g.blocks[id].Center() }

func (g *GridBackend) neighbours(id int) []int {
	if g.cols <= 0 {
		return nil
	}
	row, col := id/g.cols, id%g.cols
	var out []int
	try := func(r, c int) {
		if r < 0 || c < 0 || c >= g.cols {
			return
		}
		idx := r*g.cols + c
		if idx < 0 || idx >= len(g.blocks) {
			return
		}
		if g.blocks[idx].Bounded {
			out = append(out, idx)
		}
	}
	try(row-1, col)
	try(row+1, col)
	try(row, col-1)
	try(row, col+1)
	return out
}

// MeshBackend routes across a triangulated navigation mesh, suited to
// irregular, non-Manhattan polygons (spec §4.9, "polygon-to-triangle-mesh").
type MeshBackend struct {
	polygon Polygon
	mesh    *TriangulationMesh
}

// NewMeshBackend triangulates polygon and returns a ready-to-use
// MeshBackend.
func NewMeshBackend(polygon Polygon) (*MeshBackend, error) {
	mesh, err := Triangulate(polygon)
	if err != nil {
		return nil, err
	}
	return &MeshBackend{polygon: polygon, mesh: mesh}, nil
}

// Route finds a waypoint sequence from start to end across the
// triangulated mesh using A* over triangle adjacency.
func (m *MeshBackend) Route(start, end Point) ([]Point, error) {
	startTri := m.mesh.FindTriangle(start.X, start.Y)
	endTri := m.mesh.FindTriangle(end.X, end.Y)
	if startTri < 0 || endTri < 0 {
		return nil, ErrOutsidePolygon
	}
	if startTri == endTri {
		return []Point{start, end}, nil
	}

	path, ok := astarSearch(len(m.mesh.Triangles), startTri, endTri, m.neighbours, m.center)
	if !ok {
		return nil, ErrNoPath
	}

	waypoints := make([]Point, 0, len(path)+2)
	waypoints = append(waypoints, start)
	for _, idx := range path {
		waypoints = append(waypoints, m.mesh.Triangles[idx].Center)
	}
	waypoints = append(waypoints, end)
	return waypoints, nil
}

func (m *MeshBackend) center(id int) Point     { return m.mesh.Triangles[id].Center }
func (m *MeshBackend) neighbours(id int) []int { return m.mesh.Adjacency[id] }
