package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

func TestInsertAndGetMut(t *testing.T) {
	r := New()
	id := Identity{Family: "Widget"}
	Insert(r, id, &widget{name: "a"})

	require.True(t, r.Contains(id))
	w, ok := GetMut[widget](r, id)
	require.True(t, ok)
	assert.Equal(t, "a", w.name)

	w.name = "b"
	w2, _ := GetMut[widget](r, id)
	assert.Equal(t, "b", w2.name, "GetMut returns a live reference, not a copy")
}

func TestInsertPanicsOnDuplicate(t *testing.T) {
	r := New()
	id := Identity{Family: "Widget"}
	Insert(r, id, &widget{name: "a"})

	assert.Panics(t, func() {
		Insert(r, id, &widget{name: "b"})
	})
}

func TestDisjointManyMutRejectsDuplicateIdentity(t *testing.T) {
	r := New()
	id := Identity{Family: "Widget"}
	Insert(r, id, &widget{name: "a"})

	_, err := r.DisjointManyMut([]Identity{id, id})
	assert.Error(t, err)
}

func TestDisjointManyMutErrorsOnMissing(t *testing.T) {
	r := New()
	_, err := r.DisjointManyMut([]Identity{{Family: "Missing"}})
	assert.Error(t, err)
}

func TestDisjointManyMutReturnsLiveReferences(t *testing.T) {
	r := New()
	idA := Identity{Family: "A"}
	idB := Identity{Family: "B"}
	Insert(r, idA, &widget{name: "a"})
	Insert(r, idB, &widget{name: "b"})

	refs, err := r.DisjointManyMut([]Identity{idA, idB})
	require.NoError(t, err)
	require.Len(t, refs, 2)

	refs[0].(*widget).name = "a2"
	w, _ := GetMut[widget](r, idA)
	assert.Equal(t, "a2", w.name)
}
