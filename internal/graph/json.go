package graph

import "encoding/json"

// alias has Graph's fields but none of its methods, so encoding or decoding
// through it does not recurse into Graph's own MarshalJSON/UnmarshalJSON.
type alias Graph

// MarshalJSON satisfies json.Marshaler explicitly (even though the default
// struct encoding would already work) so the private edgeSet field can never
// leak onto the wire regardless of future field additions.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal((*alias)(g))
}

// UnmarshalJSON restores a Graph from its persisted form and rebuilds the
// in-memory edge uniqueness index, which is not itself serialized.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*g = Graph(a)
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	g.rebuildEdgeSet()
	return nil
}
