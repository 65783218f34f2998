package chromem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

const ns = "test-ns"

func chunk(id string, role domain.AccessRole, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		Embedding: vec,
		Metadata: domain.ChunkMetadata{
			DocumentID: "doc",
			ChunkIndex: 0,
			Text:       "text of " + id,
			AccessRole: role,
			Department: "Registry",
			Title:      "Title " + id,
			Source:     id + ".pdf",
			Page:       1,
		},
	}
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestQuery_OrdersBySimilarity(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{
		chunk("far", domain.RolePublic, 0, 1),
		chunk("near", domain.RolePublic, 1, 0.1),
		chunk("mid", domain.RolePublic, 1, 1),
	}))

	got, err := idx.Query(t.Context(), ns, []float32{1, 0}, 3, driven.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "text of near", got[0].Metadata.Text)
	assert.Equal(t, "Title near", got[0].Metadata.Title)
	assert.Equal(t, 1, got[0].Metadata.Page)
}

func TestQuery_FiltersByRole(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{
		chunk("public", domain.RolePublic, 1, 0),
		chunk("student", domain.RoleStudent, 1, 0.2),
		chunk("staff", domain.RoleStaff, 1, 0.01),
	}))

	filter := driven.QueryFilter{AccessRoles: domain.RoleStudent.VisibleRoles()}
	got, err := idx.Query(t.Context(), ns, []float32{1, 0}, 5, filter)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, f := range got {
		ids[i] = f.ID
		assert.NotEqual(t, domain.RoleStaff, f.Metadata.AccessRole)
	}
	assert.Equal(t, []string{"public", "student"}, ids)
}

func TestQuery_TopKAcrossRoles(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{
		chunk("p1", domain.RolePublic, 1, 0),
		chunk("p2", domain.RolePublic, 1, 0.5),
		chunk("s1", domain.RoleStudent, 1, 0.1),
		chunk("s2", domain.RoleStudent, 0, 1),
	}))

	filter := driven.QueryFilter{AccessRoles: domain.RoleStudent.VisibleRoles()}
	got, err := idx.Query(t.Context(), ns, []float32{1, 0}, 2, filter)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "s1", got[1].ID)
}

func TestQuery_EmptyNamespace(t *testing.T) {
	idx := newIndex(t)

	got, err := idx.Query(t.Context(), "nothing-here", []float32{1, 0}, 5, driven.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_TopKLargerThanCollection(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{chunk("only", domain.RolePublic, 1, 0)}))

	got, err := idx.Query(t.Context(), ns, []float32{1, 0}, 10, driven.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNamespacesAreIsolated(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), "a", []domain.Chunk{chunk("in-a", domain.RolePublic, 1, 0)}))

	got, err := idx.Query(t.Context(), "b", []float32{1, 0}, 5, driven.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsert_OverwritesExistingID(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{chunk("x", domain.RolePublic, 1, 0)}))

	updated := chunk("x", domain.RoleStaff, 1, 0)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{updated}))

	count, err := idx.Count(ns)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := idx.Query(t.Context(), ns, []float32{1, 0}, 1, driven.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RoleStaff, got[0].Metadata.AccessRole)
}

func TestDelete(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{
		chunk("keep", domain.RolePublic, 1, 0),
		chunk("drop", domain.RolePublic, 0, 1),
	}))

	require.NoError(t, idx.Delete(t.Context(), ns, []string{"drop", "unknown"}))

	count, err := idx.Count(ns)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, idx.Delete(t.Context(), ns, nil))
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	idx, err := New(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(t.Context(), ns, []domain.Chunk{chunk("saved", domain.RolePublic, 1, 0)}))
	require.NoError(t, idx.Close())

	reopened, err := New(Config{Path: dir})
	require.NoError(t, err)

	got, err := reopened.Query(t.Context(), ns, []float32{1, 0}, 1, driven.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "saved", got[0].ID)
}

func TestPing(t *testing.T) {
	assert.NoError(t, newIndex(t).Ping(t.Context()))
}
