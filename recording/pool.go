package recording

import "github.com/gogpu/imgl"

// VertexPool stores the vertex ranges referenced by upload commands.
// Each Add copies its input so the recording stays immutable.
//
// VertexPool is not safe for concurrent use.
type VertexPool struct {
	ranges [][]imgl.Vertex
	total  int
}

// NewVertexPool creates an empty pool.
func NewVertexPool() *VertexPool {
	return &VertexPool{ranges: make([][]imgl.Vertex, 0, 16)}
}

// Add stores a copy of the first count slots of vb and returns its
// reference.
func (p *VertexPool) Add(vb *imgl.VertexBuffer, count int) VertexRef {
	var vs []imgl.Vertex
	if vb != nil && count > 0 {
		vs = vb.Range(0, count)
	}
	p.ranges = append(p.ranges, vs)
	p.total += len(vs)
	// #nosec G115 -- pool size is bounded by available memory, well under uint32 max
	return VertexRef(uint32(len(p.ranges) - 1))
}

// Get returns the vertices for ref, or nil for an unknown reference.
func (p *VertexPool) Get(ref VertexRef) []imgl.Vertex {
	if !ref.IsValid() || int(ref) >= len(p.ranges) {
		return nil
	}
	return p.ranges[ref]
}

// Len returns the number of stored ranges.
func (p *VertexPool) Len() int { return len(p.ranges) }

// Vertices returns the number of stored vertices across all ranges.
func (p *VertexPool) Vertices() int { return p.total }

// Clone returns an independent copy of the pool. Ranges are shared since
// they are never modified after Add.
func (p *VertexPool) Clone() *VertexPool {
	c := &VertexPool{ranges: make([][]imgl.Vertex, len(p.ranges)), total: p.total}
	copy(c.ranges, p.ranges)
	return c
}
