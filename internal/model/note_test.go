package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNotePatch_DecodeDistinguishesAbsentFromNull(t *testing.T) {
	var p NotePatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"new","tags":null,"position":3}`), &p))

	require.NotNil(t, p.Title)
	assert.Equal(t, "new", *p.Title)
	assert.Nil(t, p.Content)

	assert.True(t, p.Tags.Set, "explicit null should be Set")
	assert.Nil(t, p.Tags.Value)

	assert.True(t, p.Position.Set)
	require.NotNil(t, p.Position.Value)
	assert.EqualValues(t, 3, *p.Position.Value)

	assert.False(t, p.EventDate.Set, "absent key should not be Set")
	assert.False(t, p.EventTime.Set)
}

func TestNotePatch_Apply(t *testing.T) {
	date := Date{2024, time.January, 2}
	n := &Note{
		Title:     "old",
		Content:   "body",
		Tags:      ptr("a,b"),
		Position:  ptr[int64](1),
		EventDate: &date,
	}

	NotePatch{
		Title:     ptr("new"),
		Tags:      Null[string](),
		Position:  Some[int64](7),
		EventTime: Some(TimeOfDay{Hour: 9}),
	}.Apply(n)

	assert.Equal(t, "new", n.Title)
	assert.Equal(t, "body", n.Content, "unset Content must be kept")
	assert.Nil(t, n.Tags, "explicit null must clear tags")
	require.NotNil(t, n.Position)
	assert.EqualValues(t, 7, *n.Position)
	require.NotNil(t, n.EventDate, "absent field must be kept")
	assert.Equal(t, date, *n.EventDate)
	require.NotNil(t, n.EventTime)
	assert.Equal(t, TimeOfDay{Hour: 9}, *n.EventTime)
}

func TestNullable_ApplyCopiesValue(t *testing.T) {
	src := Some[int64](5)
	var dst *int64
	src.apply(&dst)
	*src.Value = 99
	require.NotNil(t, dst)
	assert.EqualValues(t, 5, *dst, "applied value must not alias the patch")
}

func TestNoteJSON_UnsetFieldsAreNull(t *testing.T) {
	b, err := json.Marshal(Note{ID: 1, Title: "t"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"tags", "position", "event_date", "event_time"} {
		v, ok := m[key]
		assert.True(t, ok, "key %s should be present", key)
		assert.Nil(t, v, "key %s should be null", key)
	}
}

func TestUserPatch_Apply(t *testing.T) {
	u := &User{ID: 1, Username: "ada", Email: "ada@example.com"}
	UserPatch{Email: ptr("ada@lovelace.dev")}.Apply(u)
	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, "ada@lovelace.dev", u.Email)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "user", User{}.TableName())
	assert.Equal(t, "note", Note{}.TableName())
}
