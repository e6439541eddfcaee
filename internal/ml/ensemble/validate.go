package ensemble

import (
	"errors"
	"fmt"
)

// ErrMalformed marks a decoded model that cannot be evaluated safely.
var ErrMalformed = errors.New("ensemble: malformed model")

// Check verifies a decoded model against the width of the rows it will score.
// Nodes are stored parent-first, so every child index must be greater than its parent's.
func (m Model) Check(nFeatures int) error {
	var trees []*Tree
	switch {
	case m.Family == FamilyGB && m.GB != nil && m.RF == nil:
		trees = m.GB.Trees
	case m.Family == FamilyRF && m.RF != nil && m.GB == nil:
		trees = m.RF.Trees
	default:
		return fmt.Errorf("%w: family %q does not match its body", ErrMalformed, m.Family)
	}
	if len(trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrMalformed)
	}
	for i, t := range trees {
		if err := t.Check(nFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *Tree) Check(nFeatures int) error {
	if t == nil || len(t.Nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrMalformed)
	}
	for i, n := range t.Nodes {
		if n.Left == leaf && n.Right == leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrMalformed, i, n.Feature, nFeatures)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("%w: node %d has child %d", ErrMalformed, i, child)
			}
		}
	}
	return nil
}
