package repository

import (
	"lms_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIfAbsent(t *testing.T) {
	db := newTestDB(t, "cert_create_if_absent")
	repo := NewCertificateRepository(db)

	first := &model.Certificate{
		UserID:       1,
		CourseID:     100,
		SerialNumber: "CERT-1700000000-1-100",
		IssuedAt:     time.Now(),
		FilePath:     "uploads/certificates/CERT-1700000000-1-100.html",
	}
	created, winner, err := repo.CreateIfAbsent(first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.SerialNumber, winner.SerialNumber)

	// 同一 (user, course) 的第二次注册输给已有行
	second := &model.Certificate{
		UserID:       1,
		CourseID:     100,
		SerialNumber: "CERT-1700000099-1-100",
		IssuedAt:     time.Now(),
	}
	created, winner, err = repo.CreateIfAbsent(second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.SerialNumber, winner.SerialNumber)
	assert.Equal(t, first.FilePath, winner.FilePath)

	var count int64
	require.NoError(t, db.Model(&model.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 其它课程不受影响
	other := &model.Certificate{
		UserID:       1,
		CourseID:     200,
		SerialNumber: "CERT-1700000000-1-200",
		IssuedAt:     time.Now(),
	}
	created, _, err = repo.CreateIfAbsent(other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpdateFilePathKeepsIdentity(t *testing.T) {
	db := newTestDB(t, "cert_update_path")
	repo := NewCertificateRepository(db)

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cert := &model.Certificate{
		UserID:       1,
		CourseID:     100,
		SerialNumber: "CERT-1700000000-1-100",
		IssuedAt:     issuedAt,
		FilePath:     "old/path.html",
	}
	_, _, err := repo.CreateIfAbsent(cert)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFilePath(cert.ID, "new/path.html"))

	reloaded, err := repo.FindByUserAndCourse(1, 100)
	require.NoError(t, err)
	assert.Equal(t, "new/path.html", reloaded.FilePath)
	assert.Equal(t, "CERT-1700000000-1-100", reloaded.SerialNumber)
	assert.True(t, reloaded.IssuedAt.Equal(issuedAt))
}

func TestFindBySerialPreloadsRelations(t *testing.T) {
	db := newTestDB(t, "cert_find_serial")
	repo := NewCertificateRepository(db)

	instructor := &model.User{Name: "Ada", Email: "ada@lms.local", Password: "x", Role: model.Instructor}
	require.NoError(t, db.Create(instructor).Error)
	student := &model.User{Name: "Bob", Email: "bob@lms.local", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(student).Error)
	course := &model.Course{Title: "Go 基础", InstructorID: instructor.ID, Published: true}
	require.NoError(t, db.Create(course).Error)

	cert := &model.Certificate{
		UserID:       student.ID,
		CourseID:     course.ID,
		SerialNumber: "CERT-1700000000-2-1",
		IssuedAt:     time.Now(),
	}
	_, _, err := repo.CreateIfAbsent(cert)
	require.NoError(t, err)

	found, err := repo.FindBySerial("CERT-1700000000-2-1")
	require.NoError(t, err)
	require.NotNil(t, found.User)
	require.NotNil(t, found.Course)
	require.NotNil(t, found.Course.Instructor)
	assert.Equal(t, "Bob", found.User.Name)
	assert.Equal(t, "Go 基础", found.Course.Title)
	assert.Equal(t, "Ada", found.Course.Instructor.Name)
}
