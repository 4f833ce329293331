package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// mockNoteRepo implements repository.NoteRepository in memory. It stores
// copies so a test cannot mutate "database" state through a returned pointer.
// lastFilter records what the service passed to List.

type mockNoteRepo struct {
	notes      map[int64]*model.Note
	nextID     int64
	lastFilter repository.NoteFilter
	failWith   error
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[int64]*model.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, note *model.Note) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	note.ID = m.nextID
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id int64) (*model.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	result := *n
	return &result, nil
}

func (m *mockNoteRepo) List(_ context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	m.lastFilter = filter
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := []model.Note{}
	for _, n := range m.notes {
		if filter.Query == "" || strings.Contains(strings.ToLower(n.Title+n.Content), strings.ToLower(filter.Query)) {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockNoteRepo) Update(_ context.Context, note *model.Note) error {
	if _, ok := m.notes[note.ID]; !ok {
		return apperror.NotFound("note", note.ID)
	}
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(m.notes, id)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestNoteService(t *testing.T) (*NoteService, *mockNoteRepo) {
	t.Helper()
	repo := newMockNoteRepo()
	return NewNoteService(repo, testLogger()), repo
}

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestNoteCreate_Success(t *testing.T) {
	svc, repo := newTestNoteService(t)

	note, err := svc.Create(context.Background(), model.NotePatch{
		Title:    strPtr("  Groceries  "),
		Content:  strPtr("milk"),
		Position: model.Some(int64(1)),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), note.ID)
	assert.Equal(t, "Groceries", note.Title, "title should be trimmed")
	assert.Equal(t, "milk", note.Content)
	require.NotNil(t, note.Position)
	assert.Equal(t, int64(1), *note.Position)
	assert.Nil(t, note.Tags)
	assert.Len(t, repo.notes, 1)
}

func TestNoteCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        model.NotePatch
		wantField string
	}{
		{name: "missing title", in: model.NotePatch{Content: strPtr("x")}, wantField: "title"},
		{name: "blank title", in: model.NotePatch{Title: strPtr("   ")}, wantField: "title"},
		{name: "title too long", in: model.NotePatch{Title: strPtr(strings.Repeat("a", MaxTitleLength+1))}, wantField: "title"},
		{name: "content too long", in: model.NotePatch{Title: strPtr("t"), Content: strPtr(strings.Repeat("a", MaxContentLength+1))}, wantField: "content"},
		{name: "tags too long", in: model.NotePatch{Title: strPtr("t"), Tags: model.Some(strings.Repeat("a", MaxTagsLength+1))}, wantField: "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestNoteService(t)

			_, err := svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, repo.notes, "nothing should be stored")
		})
	}
}

func TestNoteCreate_RepoFailureIsWrapped(t *testing.T) {
	svc, repo := newTestNoteService(t)
	dbDown := errors.New("database is locked")
	repo.failWith = dbDown

	_, err := svc.Create(context.Background(), model.NotePatch{Title: strPtr("t")})
	assert.ErrorIs(t, err, dbDown)
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestNoteList_PassesTrimmedQueryAndClampsPage(t *testing.T) {
	svc, repo := newTestNoteService(t)

	_, err := svc.List(context.Background(), "  milk ", 10000, -5)
	require.NoError(t, err)

	assert.Equal(t, "milk", repo.lastFilter.Query)
	assert.Equal(t, MaxListLimit, repo.lastFilter.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)
}

func TestNoteList_ZeroLimitMeansAll(t *testing.T) {
	svc, repo := newTestNoteService(t)

	_, err := svc.List(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.lastFilter.Limit)
}

func TestNoteList_Search(t *testing.T) {
	svc, _ := newTestNoteService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, model.NotePatch{Title: strPtr("Shopping"), Content: strPtr("eggs")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.NotePatch{Title: strPtr("Travel"), Content: strPtr("bags")})
	require.NoError(t, err)

	hits, err := svc.List(ctx, "EGGS", 0, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Shopping", hits[0].Title)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestNoteUpdate_PartialPatch(t *testing.T) {
	svc, _ := newTestNoteService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, model.NotePatch{
		Title:   strPtr("draft"),
		Content: strPtr("body"),
		Tags:    model.Some("work"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, model.NotePatch{
		Title: strPtr("final"),
		Tags:  model.Null[string](),
	})
	require.NoError(t, err)

	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "body", updated.Content, "absent content must be kept")
	assert.Nil(t, updated.Tags, "explicit null must clear tags")
}

func TestNoteUpdate_EmptyTitleRejected(t *testing.T) {
	svc, _ := newTestNoteService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, model.NotePatch{Title: strPtr("keep")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, model.NotePatch{Title: strPtr("")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestNoteUpdate_NotFound(t *testing.T) {
	svc, _ := newTestNoteService(t)

	_, err := svc.Update(context.Background(), 99, model.NotePatch{Content: strPtr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// GET / DELETE TESTS
// =========================================================================

func TestNoteGetByID_InvalidID(t *testing.T) {
	svc, _ := newTestNoteService(t)

	_, err := svc.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestNoteDelete(t *testing.T) {
	svc, repo := newTestNoteService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, model.NotePatch{Title: strPtr("bye")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Empty(t, repo.notes)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), apperror.ErrNotFound)
}
