package repository

import (
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyProgressWatermark(t *testing.T) {
	db := newTestDB(t, "enrollment_watermark")
	repo := NewEnrollmentRepository(db)

	require.NoError(t, repo.Create(&model.Enrollment{UserID: 1, CourseID: 100}))

	// false → true 沿：写入完成水位
	enrollment, err := repo.ApplyProgress(1, 100, 100, true)
	require.NoError(t, err)
	assert.True(t, enrollment.Completed)
	require.NotNil(t, enrollment.CompletedAt)
	firstCompletedAt := *enrollment.CompletedAt

	// 再次完成：水位保持不变
	enrollment, err = repo.ApplyProgress(1, 100, 100, true)
	require.NoError(t, err)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, enrollment.CompletedAt.Equal(firstCompletedAt))

	// true → false 沿（例如新课时发布）：水位清空
	enrollment, err = repo.ApplyProgress(1, 100, 66.67, false)
	require.NoError(t, err)
	assert.False(t, enrollment.Completed)
	assert.Nil(t, enrollment.CompletedAt)
	assert.Equal(t, 66.67, enrollment.Progress)
}

func TestApplyProgressRequiresEnrollment(t *testing.T) {
	db := newTestDB(t, "enrollment_missing")
	repo := NewEnrollmentRepository(db)

	_, err := repo.ApplyProgress(1, 100, 50, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnrollmentUniquePerCourse(t *testing.T) {
	db := newTestDB(t, "enrollment_unique")
	repo := NewEnrollmentRepository(db)

	require.NoError(t, repo.Create(&model.Enrollment{UserID: 1, CourseID: 100}))
	err := repo.Create(&model.Enrollment{UserID: 1, CourseID: 100})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
