package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/IshaanNene/newsgoat/internal/category"
	"github.com/IshaanNene/newsgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRecords() []*types.Record {
	return []*types.Record{
		{
			ID:        "a1",
			Title:     "El cobre sube",
			Content:   "Primer párrafo.\n\nSegundo, con coma.",
			URL:       "https://www.df.cl/mercados/cobre-sube",
			Provider:  "DF.cl",
			Category:  category.Mercados,
			CreatedAt: "2024-01-01T09:00:00Z",
		},
		{
			ID:        "b2",
			Title:     "Dólar cae",
			URL:       "https://www.df.cl/noticias/dolar",
			Provider:  "DF.cl",
			Category:  category.General,
			CreatedAt: "2024-03-01T09:00:00Z",
		},
	}
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "news.json")
	s, err := NewFileStorage("json", path, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "json", s.Name())

	require.NoError(t, s.Store(sampleRecords()[:1]))
	require.NoError(t, s.Store(sampleRecords()[1:]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []*types.Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sampleRecords(), got)
}

func TestJSONLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.jsonl")
	s, err := NewFileStorage("jsonl", path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(sampleRecords()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec types.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"a1", "b2"}, ids)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	s, err := NewFileStorage("csv", path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(sampleRecords()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "a1", rows[1][0])
	assert.Equal(t, "Mercados", rows[1][3])
	assert.Equal(t, "Primer párrafo.\n\nSegundo, con coma.", rows[1][9])
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := NewFileStorage("xml", filepath.Join(t.TempDir(), "x"), testLogger)
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "news.csv"), DefaultPath("out", "csv"))
}

type failingStorage struct{ closed bool }

func (f *failingStorage) Store([]*types.Record) error { return errors.New("disk full") }
func (f *failingStorage) Close() error                { f.closed = true; return nil }
func (f *failingStorage) Name() string                { return "failing" }

func TestMultiStorageFansOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.jsonl")
	good, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	bad := &failingStorage{}

	m := NewMultiStorage([]Storage{bad, good}, testLogger)
	err = m.Store(sampleRecords())
	assert.EqualError(t, err, "disk full")
	require.NoError(t, m.Close())
	assert.True(t, bad.closed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"a1"`)
}

func TestMongoArchive(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find existing", func(mt *mtest.T) {
		a := newMongoArchive(mt.Client, mt.Coll, time.Second, testLogger)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "title", Value: "El cobre sube"},
			{Key: "category", Value: "Mercados"},
		}))

		rec, err := a.FindByID(context.Background(), "a1")
		require.NoError(mt, err)
		assert.Equal(mt, "a1", rec.ID)
		assert.Equal(mt, "El cobre sube", rec.Title)
		assert.Equal(mt, category.Mercados, rec.Category)
	})

	mt.Run("find missing", func(mt *mtest.T) {
		a := newMongoArchive(mt.Client, mt.Coll, time.Second, testLogger)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := a.FindByID(context.Background(), "zz")
		assert.ErrorIs(mt, err, types.ErrNotFound)
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		a := newMongoArchive(mt.Client, mt.Coll, time.Second, testLogger)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		require.NoError(mt, a.Store(sampleRecords()))
		assert.Equal(mt, int64(2), a.count.Load())
	})

	mt.Run("save failure is a storage error", func(mt *mtest.T) {
		a := newMongoArchive(mt.Client, mt.Coll, time.Second, testLogger)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "duplicate key",
		}))

		err := a.Save(context.Background(), sampleRecords()[0])
		var se *types.StorageError
		require.True(mt, errors.As(err, &se))
		assert.Equal(mt, "mongodb", se.Backend)
	})
}
