package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"jsoncache/core/cacheerr"
	"jsoncache/core/database"
	"jsoncache/core/schema/schematest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	s, err := Open(db, schematest.Music(), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func insertBand(t *testing.T, c *Context, name string, formed int) *Object {
	t.Helper()
	obj, err := c.InsertNew("Band")
	require.NoError(t, err)
	require.NoError(t, c.SetAttributes(obj, map[string]any{"name": name, "formed": float64(formed)}))
	return obj
}

func TestOpen(t *testing.T) {
	_, err := Open(nil, schematest.Music(), Options{})
	assert.ErrorIs(t, err, cacheerr.ErrStoreUnavailable)

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	_, err = Open(db, nil, Options{})
	assert.ErrorIs(t, err, cacheerr.ErrModelNotFound)
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	var s *Store
	var c *Context

	_, err := s.NewChildContext()
	assert.ErrorIs(t, err, cacheerr.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Migrate(ctx), cacheerr.ErrStoreUnavailable)
	assert.Nil(t, s.Main())

	_, err = c.FetchByKey(ctx, "Band", "U2")
	assert.ErrorIs(t, err, cacheerr.ErrStoreUnavailable)
	_, err = c.InsertNew("Band")
	assert.ErrorIs(t, err, cacheerr.ErrStoreUnavailable)
	assert.ErrorIs(t, c.Save(ctx), cacheerr.ErrStoreUnavailable)
	assert.ErrorIs(t, c.PerformAndWait(func() {}), cacheerr.ErrStoreUnavailable)
	assert.False(t, c.HasChanges())
}

func TestMigrate(t *testing.T) {
	s := newTestStore(t)

	columns, err := database.GetTableColumns(s.db, "band_members")
	require.NoError(t, err)

	fields := make(map[string]string)
	for _, c := range columns {
		fields[c.Field] = c.Type
	}
	assert.Equal(t, map[string]string{
		"id":          "varchar(255)",
		"joined":      "bigint",
		"left":        "bigint",
		"active":      "boolean",
		"band_id":     "varchar(255)",
		"musician_id": "varchar(255)",
	}, fields)

	// Running again is a no-op.
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestMainContext_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	main := s.Main()

	u2 := insertBand(t, main, "U2", 1976)
	require.NoError(t, main.SetAttributes(u2, map[string]any{"bandDescription": "Rock", "ignored": true}))
	assert.True(t, main.HasChanges())
	require.NoError(t, main.Save(ctx))
	assert.False(t, main.HasChanges())

	got, err := main.FetchByKey(ctx, "Band", "U2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsInserted())
	assert.Equal(t, "U2", got.Identifier())
	formed, _ := got.Value("formed")
	assert.Equal(t, int64(1976), formed)
	desc, _ := got.Value("bandDescription")
	assert.Equal(t, "Rock", desc)

	missing, err := main.FetchByKey(ctx, "Band", "Oasis")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = main.FetchByKey(ctx, "Orchestra", "x")
	assert.ErrorIs(t, err, cacheerr.ErrNoSuchEntity)

	// Updates touch only changed columns.
	require.NoError(t, main.SetAttributes(got, map[string]any{"disbanded": 2030}))
	require.NoError(t, main.Save(ctx))
	again, err := main.FetchByKey(ctx, "Band", "U2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":            "U2",
		"bandDescription": "Rock",
		"formed":          int64(1976),
		"disbanded":       int64(2030),
		"hiatus":          nil,
		"otherNames":      nil,
	}, again.Values())
}

func TestFetchByKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	main := s.Main()
	insertBand(t, main, "U2", 1976)
	insertBand(t, main, "Japan", 1974)
	require.NoError(t, main.Save(ctx))

	objs, err := main.FetchByKeys(ctx, "Band", []any{"Japan", "Blur", "U2"})
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "Japan", objs[0].Identifier())
	assert.Equal(t, "U2", objs[1].Identifier())
}

func TestSetAttributes_Coercion(t *testing.T) {
	s := newTestStore(t)
	main := s.Main()

	album, err := main.InsertNew("Album")
	require.NoError(t, err)
	require.NoError(t, main.SetAttributes(album, map[string]any{
		"name":     "Tin Drum",
		"released": "1981-11-13T00:00:00Z",
	}))
	released, _ := album.Value("released")
	assert.Equal(t, time.Date(1981, 11, 13, 0, 0, 0, 0, time.UTC), released)

	band, err := main.InsertNew("Band")
	require.NoError(t, err)
	err = main.SetAttributes(band, map[string]any{"name": "U2", "formed": 1976.5})
	assert.ErrorIs(t, err, cacheerr.ErrBadState)

	member, err := main.InsertNew("BandMember")
	require.NoError(t, err)
	require.NoError(t, main.SetAttributes(member, map[string]any{"id": float64(7)}))
	assert.Equal(t, "7", member.Identifier())
}

func TestRelationships(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	main := s.Main()

	japan := insertBand(t, main, "Japan", 1974)
	album, err := main.InsertNew("Album")
	require.NoError(t, err)
	require.NoError(t, main.SetAttributes(album, map[string]any{"name": "Assemblage"}))

	musician, err := main.InsertNew("Musician")
	require.NoError(t, err)
	require.NoError(t, main.SetAttributes(musician, map[string]any{"name": "Bono"}))

	assert.ErrorIs(t, main.SetRelationship(album, "band", musician), cacheerr.ErrBadState)
	assert.ErrorIs(t, main.SetRelationship(japan, "albums", album), cacheerr.ErrBadState)
	assert.ErrorIs(t, main.SetRelationship(album, "producer", japan), cacheerr.ErrBadState)
	require.NoError(t, main.SetRelationship(album, "band", japan))

	// Pending objects are visible before the save.
	albums, err := main.Related(ctx, japan, "albums")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Assemblage", albums[0].Identifier())

	require.NoError(t, main.Save(ctx))

	stored, err := main.FetchByKey(ctx, "Album", "Assemblage")
	require.NoError(t, err)
	band, err := main.Relationship(ctx, stored, "band")
	require.NoError(t, err)
	require.NotNil(t, band)
	assert.Equal(t, "Japan", band.Identifier())

	albums, err = main.Related(ctx, band, "albums")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Assemblage", albums[0].Identifier())

	// Clearing the relationship writes NULL.
	require.NoError(t, main.SetRelationship(stored, "band", nil))
	require.NoError(t, main.Save(ctx))
	stored, err = main.FetchByKey(ctx, "Album", "Assemblage")
	require.NoError(t, err)
	band, err = main.Relationship(ctx, stored, "band")
	require.NoError(t, err)
	assert.Nil(t, band)

	rels := main.RelationshipsOf(japan)
	assert.Len(t, rels, 2)
}

func TestChildContext_SaveFoldsIntoParent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	child, err := s.NewChildContext()
	require.NoError(t, err)
	defer child.Close()
	assert.True(t, child.IsChild())

	insertBand(t, child, "U2", 1976)
	require.NoError(t, child.Save(ctx))
	assert.False(t, child.HasChanges())

	// Visible through the main context, not yet in the database.
	main := s.Main()
	assert.True(t, main.HasChanges())
	obj, err := main.FetchByKey(ctx, "Band", "U2")
	require.NoError(t, err)
	require.NotNil(t, obj)

	var count int64
	require.NoError(t, s.db.Table("band").Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, main.Save(ctx))
	require.NoError(t, s.db.Table("band").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	all, err := main.FetchAll(ctx, "Band")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChildContext_SeesParentChanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insertBand(t, s.Main(), "Japan", 1974)

	child, err := s.NewChildContext()
	require.NoError(t, err)
	defer child.Close()

	obj, err := child.FetchByKey(ctx, "Band", "Japan")
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.False(t, obj.HasChanges())

	// The child registers what it fetched.
	same, err := child.FetchByKey(ctx, "Band", "Japan")
	require.NoError(t, err)
	assert.Same(t, obj, same)
}

func TestChildContext_ValidationFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	child, err := s.NewChildContext()
	require.NoError(t, err)
	defer child.Close()

	band, err := child.InsertNew("Band")
	require.NoError(t, err)
	require.NoError(t, child.SetAttributes(band, map[string]any{"name": "Oasis"}))

	err = child.Save(ctx)
	assert.ErrorIs(t, err, cacheerr.ErrStore)
	assert.ErrorContains(t, err, "formed")
	assert.False(t, child.HasChanges())
	assert.False(t, s.Main().HasChanges())

	// An inserted object that never got an identifier also fails the save.
	_, err = child.InsertNew("Album")
	require.NoError(t, err)
	err = child.Save(ctx)
	assert.ErrorIs(t, err, cacheerr.ErrStore)
	assert.ErrorIs(t, err, cacheerr.ErrBadState)
}

func TestMainContext_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	insertBand(t, s.Main(), "Japan", 1974)
	insertBand(t, s.Main(), "U2", 1976)

	failing := errors.New("disk full")
	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail", func(tx *gorm.DB) {
		if tx.Statement.Table == "band" {
			tx.AddError(failing)
		}
	})
	require.NoError(t, err)

	err = s.Main().Save(ctx)
	assert.ErrorIs(t, err, cacheerr.ErrStore)
	assert.ErrorIs(t, err, failing)
	assert.False(t, s.Main().HasChanges())

	var count int64
	require.NoError(t, s.db.Table("band").Count(&count).Error)
	assert.Zero(t, count)
}

func TestFetch_DatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	s, err := Open(db, schematest.Music(), Options{})
	require.NoError(t, err)
	defer s.Close()

	mock.ExpectQuery("SELECT (.+) FROM `band`").WillReturnError(errors.New("connection reset"))

	_, err = s.Main().FetchByKey(context.Background(), "Band", "U2")
	assert.ErrorIs(t, err, cacheerr.ErrStore)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformAndWait(t *testing.T) {
	s := newTestStore(t)
	child, err := s.NewChildContext()
	require.NoError(t, err)

	ran := false
	require.NoError(t, child.PerformAndWait(func() { ran = true }))
	assert.True(t, ran)

	child.Close()
	assert.Error(t, child.PerformAndWait(func() {}))
	assert.Error(t, child.Perform(func() {}))
}

func TestPerform(t *testing.T) {
	s := newTestStore(t)
	main := s.Main()

	ran := make(chan int, 1)
	require.NoError(t, main.Perform(func() { ran <- 1 }))
	select {
	case v := <-ran:
		assert.Equal(t, 1, v)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled work did not run")
	}

	var seen []int
	require.NoError(t, main.PerformAndWait(func() { seen = append(seen, 1) }))
	require.NoError(t, main.PerformAndWait(func() { seen = append(seen, 2) }))
	assert.Equal(t, []int{1, 2}, seen)
}
