package halnav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrsimr/hal/halnav"
	"github.com/ejrsimr/hal/halseg"
)

// buildTree builds:
//
//	root
//	├── a
//	│   └── a1
//	└── b
func buildTree() (root, a, a1, b *halseg.Genome) {
	root = halseg.NewGenome("root")
	a = halseg.NewGenome("a")
	a1 = halseg.NewGenome("a1")
	b = halseg.NewGenome("b")
	root.AddChild(a)
	root.AddChild(b)
	a.AddChild(a1)
	return
}

func TestGetGenome(t *testing.T) {
	root, a, _, _ := buildTree()
	nav := halnav.New(root)

	assert.Same(t, a, nav.GetGenome("a"))
	assert.Nil(t, nav.GetGenome("nonexistent"))
}

func TestLcaOfSiblings(t *testing.T) {
	root, a, _, b := buildTree()
	nav := halnav.New(root)

	assert.Same(t, root, nav.LcaOf(a, b))
}

func TestLcaOfAncestorDescendant(t *testing.T) {
	root, a, a1, _ := buildTree()
	nav := halnav.New(root)

	assert.Same(t, a, nav.LcaOf(a, a1))
	_ = root
}

func TestPathCrossesThroughLca(t *testing.T) {
	root, a, a1, b := buildTree()
	nav := halnav.New(root)

	path := nav.Path(a1, b)
	require.Len(t, path, 4)
	assert.Same(t, a1, path[0])
	assert.Same(t, a, path[1])
	assert.Same(t, root, path[2])
	assert.Same(t, b, path[3])
}

func TestIteratorFactories(t *testing.T) {
	root, a, _, _ := buildTree()
	root.AddSequence("rootChr", []byte("AAAACCCC"))
	a.AddSequence("aChr", []byte("AAAACCCC"))
	root.SetSegments(nil, []halseg.BottomSegment{{Start: 0, Length: 8}}, []halseg.ChildSlot{{ChildTop: 0}, {ChildTop: halseg.NullSeg}})
	a.SetSegments([]halseg.TopSegment{{Start: 0, Length: 8, ParentBottom: 0, NextParalogy: 0, BottomParse: halseg.NullSeg}}, nil, nil)

	nav := halnav.New(root)
	top := nav.GetTopSegmentIterator(a, 0)
	assert.Equal(t, int64(8), top.GetLength())

	bottom := nav.GetBottomSegmentIterator(root, 0)
	assert.Equal(t, int64(8), bottom.GetLength())
}
