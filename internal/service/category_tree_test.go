package service

import (
	"testing"

	"marketflow/internal/models"

	"github.com/stretchr/testify/assert"
)

type visit struct {
	id    int64
	depth int
}

func walkAll(categories []models.Category) []visit {
	var visits []visit
	Walk(categories, func(c models.Category, depth int) {
		visits = append(visits, visit{c.ID, depth})
	})
	return visits
}

func TestWalkPreOrder(t *testing.T) {
	visits := walkAll(testSeed().Categories)

	assert.Equal(t, []visit{
		{1, 0}, {2, 1}, {3, 2}, {5, 1}, {4, 0},
	}, visits)
}

func TestWalkTerminatesOnCycle(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "Root"},
		{ID: 2, Name: "A", ParentID: int64Ptr(3)},
		{ID: 3, Name: "B", ParentID: int64Ptr(2)},
		{ID: 4, Name: "Child", ParentID: int64Ptr(1)},
	}

	// 2 and 3 only reach each other, so no root leads to them
	assert.Equal(t, []visit{{1, 0}, {4, 1}}, walkAll(categories))
}

func TestWalkSelfParent(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "Loop", ParentID: int64Ptr(1)},
		{ID: 2, Name: "Root"},
	}

	assert.Equal(t, []visit{{2, 0}}, walkAll(categories))
}

func TestWalkDuplicateIDs(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "Root"},
		{ID: 2, Name: "Child", ParentID: int64Ptr(1)},
		{ID: 1, Name: "Duplicate root"},
	}

	assert.Equal(t, []visit{{1, 0}, {2, 1}}, walkAll(categories))
}

func TestWalkEmpty(t *testing.T) {
	assert.Empty(t, walkAll(nil))
	assert.Empty(t, BuildTree(nil))
}

func TestBuildTreeOrphans(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "Root"},
		{ID: 2, Name: "Orphan", ParentID: int64Ptr(99)},
	}

	tree := BuildTree(categories)
	assert.Len(t, tree, 1)
	assert.Empty(t, tree[0].Children)
}
