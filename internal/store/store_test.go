package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
)

func newAction(text string) schedule.ScheduledAction {
	a := schedule.NewWithDefaults("America/New_York", "Eastern Time")
	return a.Clone(schedule.Patch{Trigger: &text, Channel: recurrence.Ref("C1")})
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "actions.json")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.List())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = Open("")
	assert.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	s, err := Open(path)
	require.NoError(t, err)

	saved, err := s.Put(newAction("good morning"))
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)

	got, err := s.Get(saved.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsIdenticalTo(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	updated, err := s.Put(saved.Clone(schedule.Patch{Trigger: recurrence.Ref("good night")}))
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	require.Len(t, s.List(), 1)
	assert.Equal(t, "good night", s.List()[0].Trigger)

	require.NoError(t, s.Delete(saved.ID))
	_, err = s.Get(saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(saved.ID), ErrNotFound)
}

func TestPutRejects(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "actions.json"))
	require.NoError(t, err)

	_, err = s.Put(schedule.NewWithDefaults("UTC", ""))
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = s.Put(newAction("hi").Clone(schedule.Patch{ID: recurrence.Ref("nope")}))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.List())
}

func TestRecordRunAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	s, err := Open(path)
	require.NoError(t, err)
	saved, err := s.Put(newAction("standup"))
	require.NoError(t, err)

	ran, err := s.RecordRun(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ran.Recurrence.TimesHasRun)
	_, err = s.RecordRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	reopened, err := Open(path)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 1)
	assert.True(t, ran.IsIdenticalTo(list[0]))
	assert.Equal(t, "Eastern Time", list[0].Recurrence.TimeZoneName)
}

func TestListIsACopy(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "actions.json"))
	require.NoError(t, err)
	_, err = s.Put(newAction("hello").WithNewArgument())
	require.NoError(t, err)

	list := s.List()
	list[0].Arguments[0].Name = "mutated"
	assert.Empty(t, s.List()[0].Arguments[0].Name)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := Open(path)
	assert.Error(t, err)
}
