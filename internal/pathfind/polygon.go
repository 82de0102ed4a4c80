package pathfind

// Polygon is a simple polygon defined by an ordered list of vertices
// (spec §3: "Area: a polygonal region with a floor label").
type Polygon struct {
	Vertices []Point
}

// Bounds returns the polygon's axis-aligned bounding box.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64) {
	if len(p.Vertices) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = p.Vertices[0].X, p.Vertices[0].Y
	maxX, maxY = minX, minY
	for _, v := range p.Vertices[1:] {
		minX = min(minX, v.X)
		maxX = max(maxX, v.X)
		minY = min(minY, v.Y)
		maxY = max(maxY, v.Y)
	}
	return
}

// Contains reports whether (x, y) lies inside the polygon, using the
// standard ray-casting algorithm.
func (p Polygon) Contains(x, y float64) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := p.Vertices[i].X, p.Vertices[i].Y
		xj, yj := p.Vertices[j].X, p.Vertices[j].Y
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Block is a rectangular grid cell overlaid on the polygon.
type Block struct {
	X1, Y1, X2, Y2 float64
	Bounded        bool
}

// Center returns the block's midpoint.
func (b Block) Center() Point {
	return Point{(b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2}
}

// Contains reports whether (x, y) lies within the block's bounds.
func (b Block) Contains(x, y float64) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// ToBoundedBlocks overlays a grid of blockSize-by-blockSize cells on the
// polygon's bounding box and marks each cell's Bounded flag by testing
// its center against the polygon.
func (p Polygon) ToBoundedBlocks(blockSize float64) []Block {
	minX, minY, maxX, maxY := p.Bounds()
	cols := int(ceilDiv(maxX-minX, blockSize))
	rows := int(ceilDiv(maxY-minY, blockSize))

	blocks := make([]Block, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x1 := minX + float64(col)*blockSize
			y1 := minY + float64(row)*blockSize
			x2 := x1 + blockSize
			y2 := y1 + blockSize
			center := Point{(x1 + x2) / 2, (y1 + y2) / 2}
			blocks = append(blocks, Block{
				X1: x1, Y1: y1, X2: x2, Y2: y2,
				Bounded: p.Contains(center.X, center.Y),
			})
		}
	}
	return blocks
}

// GridDimensions returns the (cols, rows) of a block grid at blockSize.
func (p Polygon) GridDimensions(blockSize float64) (cols, rows int) {
	minX, minY, maxX, maxY := p.Bounds()
	return int(ceilDiv(maxX-minX, blockSize)), int(ceilDiv(maxY-minY, blockSize))
}

func ceilDiv(span, size float64) float64 {
	if size <= 0 {
		return 0
	}
	n := span / size
	if n == float64(int(n)) {
		return n
	}
	return float64(int(n) + 1)
}
