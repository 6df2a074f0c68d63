package service

import (
	"marketflow/internal/models"
)

// TreeNode is a category with its subcategories
type TreeNode struct {
	models.Category
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children"`
}

type frame struct {
	idx    int
	depth  int
	parent *TreeNode
}

// childIndex maps a category id to the positions of its children, in table
// order, and lists the roots.
func childIndex(categories []models.Category) (roots []int, children map[int64][]int) {
	children = make(map[int64][]int)
	for i, c := range categories {
		if c.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], i)
	}
	return roots, children
}

// traverse runs a pre-order depth-first walk from the roots with an explicit
// stack. Each id is visited at most once, so malformed parent cycles end the
// walk instead of looping; categories not reachable from a root are skipped.
func traverse(categories []models.Category, visit func(f frame) *TreeNode) {
	roots, children := childIndex(categories)
	visited := make(map[int64]bool, len(categories))

	stack := make([]frame, 0, len(categories))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{idx: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := categories[f.idx].ID
		if visited[id] {
			continue
		}
		visited[id] = true

		node := visit(f)

		kids := children[id]
		for i := len(kids) - 1; i >= 0; i-- {
			if !visited[categories[kids[i]].ID] {
				stack = append(stack, frame{idx: kids[i], depth: f.depth + 1, parent: node})
			}
		}
	}
}

// Walk calls visit for every category reachable from a root, parents before
// children, siblings in table order.
func Walk(categories []models.Category, visit func(c models.Category, depth int)) {
	traverse(categories, func(f frame) *TreeNode {
		visit(categories[f.idx].Clone(), f.depth)
		return nil
	})
}

// BuildTree returns the reachable categories as nested nodes
func BuildTree(categories []models.Category) []*TreeNode {
	roots := make([]*TreeNode, 0)
	traverse(categories, func(f frame) *TreeNode {
		node := &TreeNode{
			Category: categories[f.idx].Clone(),
			Depth:    f.depth,
			Children: make([]*TreeNode, 0),
		}
		if f.parent == nil {
			roots = append(roots, node)
		} else {
			f.parent.Children = append(f.parent.Children, node)
		}
		return node
	})
	return roots
}
