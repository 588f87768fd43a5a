package repository

import (
	"fmt"
	"lms_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.LessonCompletion{},
		&model.Certificate{},
	))
	return db
}

func TestRecordCompletionCreatesFact(t *testing.T) {
	db := newTestDB(t, "completion_create")
	repo := NewCompletionRepository(db)

	fact, err := repo.RecordCompletion(1, 10, 100, 30)
	require.NoError(t, err)

	assert.True(t, fact.Completed)
	assert.Equal(t, 30, fact.TimeSpent)
	assert.Equal(t, uint(100), fact.CourseID)
	assert.False(t, fact.CompletedAt.IsZero())
}

func TestRecordCompletionMergesTimeSpent(t *testing.T) {
	db := newTestDB(t, "completion_merge")
	repo := NewCompletionRepository(db)

	_, err := repo.RecordCompletion(1, 10, 100, 30)
	require.NoError(t, err)

	// 较小的时长不回退累计值
	fact, err := repo.RecordCompletion(1, 10, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, fact.TimeSpent)

	// 较大的时长正常推进
	fact, err = repo.RecordCompletion(1, 10, 100, 45)
	require.NoError(t, err)
	assert.Equal(t, 45, fact.TimeSpent)

	var count int64
	require.NoError(t, db.Model(&model.LessonCompletion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "repeated completion must not create new rows")
}

func TestRecordCompletionClampsNegativeTime(t *testing.T) {
	db := newTestDB(t, "completion_negative")
	repo := NewCompletionRepository(db)

	fact, err := repo.RecordCompletion(1, 10, 100, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, fact.TimeSpent)
}

func TestCompletedLessonIDs(t *testing.T) {
	db := newTestDB(t, "completion_ids")
	repo := NewCompletionRepository(db)

	_, err := repo.RecordCompletion(1, 10, 100, 5)
	require.NoError(t, err)
	_, err = repo.RecordCompletion(1, 11, 100, 5)
	require.NoError(t, err)
	_, err = repo.RecordCompletion(2, 12, 100, 5)
	require.NoError(t, err)

	ids, err := repo.CompletedLessonIDs(1, []uint{10, 11, 12, 13})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{10, 11}, ids)

	// 空集合直接短路
	ids, err = repo.CompletedLessonIDs(1, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListByLessonNewestFirst(t *testing.T) {
	db := newTestDB(t, "completion_list")
	repo := NewCompletionRepository(db)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := []model.LessonCompletion{
		{UserID: 1, LessonID: 10, CourseID: 100, Completed: true, CompletedAt: base},
		{UserID: 2, LessonID: 10, CourseID: 100, Completed: true, CompletedAt: base.Add(2 * time.Hour)},
		{UserID: 3, LessonID: 10, CourseID: 100, Completed: true, CompletedAt: base.Add(time.Hour)},
		{UserID: 4, LessonID: 11, CourseID: 100, Completed: true, CompletedAt: base.Add(3 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	completions, err := repo.ListByLesson(10)
	require.NoError(t, err)
	require.Len(t, completions, 3)

	// 按完成时间倒序，最新的在前
	var userOrder []uint
	for i, c := range completions {
		assert.Equal(t, uint(10), c.LessonID)
		assert.True(t, c.Completed)
		if i > 0 {
			assert.False(t, c.CompletedAt.After(completions[i-1].CompletedAt))
		}
		userOrder = append(userOrder, c.UserID)
	}
	assert.Equal(t, []uint{2, 3, 1}, userOrder)
}
