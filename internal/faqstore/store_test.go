package faqstore

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/models"
	"github.com/starford/faqs/internal/storage"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return New(fs, "faqs.json"), filepath.Join(dir, "faqs.json")
}

func ids(faqs []models.Faq) []int {
	out := make([]int, len(faqs))
	for i, f := range faqs {
		out[i] = f.ID
	}
	return out
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, path := testStore(t)

	c, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Empty(t, c)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "load must not create the backing file")
}

func TestLoad_EmptyAndWhitespaceFile(t *testing.T) {
	for _, content := range []string{"", "   \n\t", "null"} {
		s, path := testStore(t)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		faqs, err := s.List()
		require.NoError(t, err, "content %q", content)
		require.NotNil(t, faqs)
		require.Empty(t, faqs)
	}
}

func TestEndToEndScenario(t *testing.T) {
	s, _ := testStore(t)

	first, err := s.Insert(Draft{Question: "What is X?", Answer: "X is Y"})
	require.NoError(t, err)
	require.Equal(t, models.Faq{ID: 1, Question: "What is X?", Answer: "X is Y"}, first)

	all, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []int{1}, ids(all))

	second, err := s.Insert(Draft{Question: "Another?", Answer: "Sure"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	require.NoError(t, s.DeleteByID(1))
	all, err = s.List()
	require.NoError(t, err)
	require.Equal(t, []int{2}, ids(all))

	require.ErrorIs(t, s.DeleteByID(1), apperr.ErrNotFound)
}

func TestInsert_MonotonicAndUnique(t *testing.T) {
	s, _ := testStore(t)

	for i := 0; i < 5; i++ {
		before, err := s.Load()
		require.NoError(t, err)

		faq, err := s.Insert(Draft{Question: "q", Answer: "a"})
		require.NoError(t, err)
		require.Greater(t, faq.ID, before.MaxID())
	}

	// Removing a middle record never lowers the next id.
	require.NoError(t, s.DeleteByID(3))
	faq, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)
	require.Equal(t, 6, faq.ID)

	all, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4, 5, 6}, ids(all))
}

func TestInsert_FollowsExternalEdits(t *testing.T) {
	s, path := testStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":41,"question":"q","answer":"a"}]`), 0o644))

	faq, err := s.Insert(Draft{Question: "next", Answer: "one"})
	require.NoError(t, err)
	require.Equal(t, 42, faq.ID)
}

func TestInsert_MaxIntIDLeavesFileUntouched(t *testing.T) {
	s, path := testStore(t)
	content := []byte(`[{"id":9223372036854775807,"question":"q","answer":"a"}]`)
	if strconv.IntSize == 32 {
		content = []byte(`[{"id":2147483647,"question":"q","answer":"a"}]`)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := s.Insert(Draft{Question: "n", Answer: "m"})
	require.ErrorIs(t, err, ErrIDSpaceExhausted)
	require.ErrorIs(t, err, apperr.ErrIDConflict)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, after)

	faqs, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []int{math.MaxInt}, ids(faqs))
}

func TestInsert_PreservesTags(t *testing.T) {
	s, _ := testStore(t)

	tags := []string{"go", "storage"}
	faq, err := s.Insert(Draft{Question: "q", Answer: "a", Tags: tags})
	require.NoError(t, err)
	tags[0] = "mutated"

	got, err := s.GetByID(faq.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "storage"}, got.Tags)
}

func TestInsert_Validation(t *testing.T) {
	s, path := testStore(t)

	cases := []Draft{
		{Question: "", Answer: "answer"},
		{Question: "question", Answer: ""},
		{Question: "   ", Answer: "answer"},
		{Question: "question", Answer: "a", Tags: []string{"ok", ""}},
		{ID: -1, Question: "question", Answer: "a"},
	}
	for _, d := range cases {
		_, err := s.Insert(d)
		require.ErrorIs(t, err, apperr.ErrInvalidInput, "draft %+v", d)

		var verrs validation.Errors
		require.ErrorAs(t, err, &verrs)
	}

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "invalid input must not write")

	all, err := s.List()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestInsert_IDConflict(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)

	_, err = s.Insert(Draft{ID: 1, Question: "q2", Answer: "a2"})
	require.ErrorIs(t, err, apperr.ErrIDConflict)

	// A free caller-supplied id is ignored, the store still assigns.
	faq, err := s.Insert(Draft{ID: 99, Question: "q3", Answer: "a3"})
	require.NoError(t, err)
	require.Equal(t, 2, faq.ID)
}

func TestGetByID(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)

	got, err := s.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, "q", got.Question)

	_, err = s.GetByID(7)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteByID_UnknownIsNoop(t *testing.T) {
	s, path := testStore(t)
	_, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)

	require.ErrorIs(t, s.DeleteByID(5), apperr.ErrNotFound)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
	info2, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, os.SameFile(info, info2), "unknown id must not rewrite the file")
}

func TestDeleteByID_EmptyStoreDoesNotCreateFile(t *testing.T) {
	s, path := testStore(t)
	require.ErrorIs(t, s.DeleteByID(1), apperr.ErrNotFound)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestPersistLoadRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	want := Collection{
		{ID: 3, Question: "third", Answer: "c", Tags: []string{"x"}},
		{ID: 1, Question: "first", Answer: "a"},
		{ID: 2, Question: "second", Answer: "b", Tags: []string{"y", "z"}},
	}
	require.NoError(t, s.Persist(want))

	got, err := s.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPersist_RejectsDuplicateIDs(t *testing.T) {
	s, _ := testStore(t)
	err := s.Persist(Collection{{ID: 1, Question: "a", Answer: "a"}, {ID: 1, Question: "b", Answer: "b"}})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConcurrentInsertsNoLostUpdates(t *testing.T) {
	s, _ := testStore(t)
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(Draft{Question: "q", Answer: "a"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := s.List()
	require.NoError(t, err)
	got := ids(all)
	sort.Ints(got)

	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	s, _ := testStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Insert(Draft{Question: "q", Answer: "a"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.List()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 20)
}

func TestCorruptStorage(t *testing.T) {
	s, path := testStore(t)
	_, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)
	good, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = s.List()
	require.ErrorIs(t, err, apperr.ErrCorruptStorage)
	_, err = s.GetByID(1)
	require.ErrorIs(t, err, apperr.ErrCorruptStorage)
	_, err = s.Insert(Draft{Question: "q", Answer: "a"})
	require.ErrorIs(t, err, apperr.ErrCorruptStorage)
	require.ErrorIs(t, s.DeleteByID(1), apperr.ErrCorruptStorage)

	// No repair: the corrupt bytes are left in place.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(raw))

	// Restoring the file makes the store usable again.
	require.NoError(t, os.WriteFile(path, good, 0o644))
	all, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []int{1}, ids(all))
}

func TestCorruptStorage_InvalidCollections(t *testing.T) {
	for _, content := range []string{
		`{"id":1}`,
		`[{"id":1,"question":"a","answer":"a"},{"id":1,"question":"b","answer":"b"}]`,
		`[{"id":0,"question":"a","answer":"a"}]`,
		`[{"id":"1","question":"a","answer":"a"}]`,
	} {
		s, path := testStore(t)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := s.Load()
		require.ErrorIs(t, err, apperr.ErrCorruptStorage, "content %s", content)
	}
}

func TestChecksumTracksOwnWrites(t *testing.T) {
	s, path := testStore(t)
	require.Empty(t, s.Checksum())

	_, err := s.Insert(Draft{Question: "q", Answer: "a"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, sum, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, sum, s.Checksum())
	require.NotEmpty(t, data)
}

func TestSnapshot_RefusesCorrupt(t *testing.T) {
	s, path := testStore(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, _, err := s.Snapshot()
	require.ErrorIs(t, err, apperr.ErrCorruptStorage)
}
