// Package halnav is a thin facade over the genome tree and segment
// iterators, the interface the lift-over engine consumes. It never touches
// the Mapped Store directly; it only navigates the in-memory Genome tree
// that halseg built from one.
package halnav

import (
	"github.com/grailbio/base/log"

	"github.com/ejrsimr/hal/halseg"
)

// Navigator resolves genomes by name and answers tree-topology questions
// (LcaOf, Path) on behalf of the lift-over engine's bounded tree walk.
type Navigator struct {
	genomesByName map[string]*halseg.Genome
	root          *halseg.Genome
}

// New builds a Navigator over every genome reachable from root.
func New(root *halseg.Genome) *Navigator {
	n := &Navigator{genomesByName: make(map[string]*halseg.Genome), root: root}
	n.index(root)
	return n
}

func (n *Navigator) index(g *halseg.Genome) {
	n.genomesByName[g.Name] = g
	for _, c := range g.Children {
		n.index(c)
	}
}

// GetGenome returns the named genome, or nil if absent.
func (n *Navigator) GetGenome(name string) *halseg.Genome {
	return n.genomesByName[name]
}

// depth returns g's distance from the tree root, used by lcaOf.
func depth(g *halseg.Genome) int {
	d := 0
	for g.Parent != nil {
		g = g.Parent
		d++
	}
	return d
}

// LcaOf returns the lowest common ancestor of src and tgt. Both must belong
// to this Navigator's tree; if either is nil, LcaOf returns nil.
func (n *Navigator) LcaOf(src, tgt *halseg.Genome) *halseg.Genome {
	if src == nil || tgt == nil {
		return nil
	}
	ds, dt := depth(src), depth(tgt)
	for ds > dt {
		src = src.Parent
		ds--
	}
	for dt > ds {
		tgt = tgt.Parent
		dt--
	}
	for src != tgt {
		if src == nil || tgt == nil {
			log.Error.Printf("halnav: LcaOf: genomes share no common ancestor")
			return nil
		}
		src = src.Parent
		tgt = tgt.Parent
	}
	return src
}

// Path returns the tree path from src up to and including their lowest
// common ancestor, then down to tgt: [src, ..., lca, ..., tgt]. It takes no
// coalescence limit; a walk turning at another ancestor uses PathVia.
func (n *Navigator) Path(src, tgt *halseg.Genome) []*halseg.Genome {
	return n.PathVia(src, n.LcaOf(src, tgt), tgt)
}

// PathVia returns the tree path from src up to via, then down to tgt. via
// must be an ancestor (or equal to) both src and tgt; callers that want to
// clip the walk at a coalescence limit use this directly in place of
// Path's default LCA turning point. Returns nil if via isn't reachable by
// walking parents from either end.
func (n *Navigator) PathVia(src, via, tgt *halseg.Genome) []*halseg.Genome {
	if src == nil || via == nil || tgt == nil {
		return nil
	}
	var up []*halseg.Genome
	g := src
	for g != via {
		if g == nil {
			return nil
		}
		up = append(up, g)
		g = g.Parent
	}
	up = append(up, via)

	var down []*halseg.Genome
	g = tgt
	for g != via {
		if g == nil {
			return nil
		}
		down = append(down, g)
		g = g.Parent
	}
	for i := len(down) - 1; i >= 0; i-- {
		up = append(up, down[i])
	}
	return up
}

// GetTopSegmentIterator returns an iterator over genome g's top segment
// table at index.
func (n *Navigator) GetTopSegmentIterator(g *halseg.Genome, index halseg.SegIndex) halseg.TopIterator {
	return halseg.NewTopIterator(g, index)
}

// GetBottomSegmentIterator is GetTopSegmentIterator's bottom-table
// counterpart.
func (n *Navigator) GetBottomSegmentIterator(g *halseg.Genome, index halseg.SegIndex) halseg.BottomIterator {
	return halseg.NewBottomIterator(g, index)
}
