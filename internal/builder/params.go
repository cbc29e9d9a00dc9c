package builder

import "github.com/starford/reftree/internal/schemas"

// ParameterTree extends the family's partial parameter tree (or an empty
// one) with a path per dataset: each parameter value in order is one
// level and the last value is a leaf.
func ParameterTree(f *schemas.Family) *schemas.ParameterNode {
	root := f.ParameterTree
	if root == nil {
		root = &schemas.ParameterNode{}
	}
	if root.Next == nil {
		root.Next = make(map[string]*schemas.ParameterNode)
	}
	for _, d := range f.Data {
		values := d.Parameters.Values()
		if len(values) == 0 {
			continue
		}
		cur := root
		for _, v := range values[:len(values)-1] {
			next := cur.Next[v]
			if next == nil {
				next = &schemas.ParameterNode{Next: make(map[string]*schemas.ParameterNode)}
				cur.Next[v] = next
			}
			cur = next
		}
		cur.Next[values[len(values)-1]] = nil
	}
	return root
}
