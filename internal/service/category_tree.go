package service

import (
	"slices"
	"strings"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

// categoryTree indexes a snapshot of the forest by id and by parent id.
// Every walk is iterative, so depth is bounded only by memory.
type categoryTree struct {
	nodes    map[string]entity.Category
	children map[string][]string
}

func newCategoryTree(categories []entity.Category) *categoryTree {
	t := &categoryTree{
		nodes:    make(map[string]entity.Category, len(categories)),
		children: make(map[string][]string),
	}
	slices.SortFunc(categories, byCategoryName)
	for _, c := range categories {
		t.nodes[c.ID] = c
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
	return t
}

func byCategoryName(a, b entity.Category) int {
	return strings.Compare(a.Name, b.Name)
}

// path walks parent links up from id and returns the chain root first.
func (t *categoryTree) path(id string) ([]entity.Category, error) {
	var chain []entity.Category
	seen := make(map[string]bool)
	for cur := id; ; {
		node, ok := t.nodes[cur]
		if !ok {
			return nil, entity.ErrCategoryNotFound
		}
		if seen[cur] {
			return nil, entity.ErrCircularReference
		}
		seen[cur] = true
		chain = append(chain, node)
		if node.ParentID == nil {
			break
		}
		cur = *node.ParentID
	}
	slices.Reverse(chain)
	return chain, nil
}

// preorder lists id and all its descendants depth first, parents before
// children, siblings by name.
func (t *categoryTree) preorder(id string) []entity.Category {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	var out []entity.Category
	stack := []string{id}
	seen := make(map[string]bool)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, t.nodes[cur])
		kids := t.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// isAncestorOrSelf reports whether ancestor is candidate itself or lies on the
// parent chain above candidate.
func (t *categoryTree) isAncestorOrSelf(ancestor, candidate string) bool {
	seen := make(map[string]bool)
	for cur := candidate; ; {
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		node, ok := t.nodes[cur]
		if !ok || node.ParentID == nil {
			return false
		}
		cur = *node.ParentID
	}
}
