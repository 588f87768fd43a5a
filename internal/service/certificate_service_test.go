package service

import (
	"context"
	"encoding/json"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeCourse 直接写完成事实，绕开进度服务的自动签发
func completeCourse(t *testing.T, f *fixture) {
	t.Helper()
	completions := repository.NewCompletionRepository(f.db)
	for _, lesson := range f.lessons {
		if !lesson.Published {
			continue
		}
		_, err := completions.RecordCompletion(f.student.ID, lesson.ID, f.course.ID, 10)
		require.NoError(t, err)
	}
}

func TestEnsureIssuedAtMostOnce(t *testing.T) {
	f := newFixture(t, "ensure_once")
	completeCourse(t, f)

	created, err := f.certs.EnsureIssued(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// 第二次是 no-op，不生成新行也不重建文件
	created, err = f.certs.EnsureIssued(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, f.generator.calls)

	var count int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssueOrRegenerateReturnsExisting(t *testing.T) {
	f := newFixture(t, "regen_existing")
	completeCourse(t, f)

	_, err := f.certs.EnsureIssued(f.student.ID, f.course.ID)
	require.NoError(t, err)

	issued, err := f.certs.IssueOrRegenerate(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.generator.calls, "existing artifact must not be rebuilt")
	assert.FileExists(t, issued.FilePath)
}

func TestIssueOrRegenerateRebuildsMissingArtifact(t *testing.T) {
	f := newFixture(t, "regen_missing")
	completeCourse(t, f)

	_, err := f.certs.EnsureIssued(f.student.ID, f.course.ID)
	require.NoError(t, err)

	original, err := f.certs.CertificateRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(original.FilePath))

	issued, err := f.certs.IssueOrRegenerate(f.student.ID, f.course.ID)
	require.NoError(t, err)

	// 补生成不换编号、不改签发时间
	assert.Equal(t, original.SerialNumber, issued.Certificate.SerialNumber)
	assert.True(t, issued.Certificate.IssuedAt.Equal(original.IssuedAt))
	assert.FileExists(t, issued.FilePath)

	var count int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssueOrRegenerateRejectsIncompleteCourse(t *testing.T) {
	f := newFixture(t, "regen_incomplete")

	// 只完成一半课程，没有证书行
	completions := repository.NewCompletionRepository(f.db)
	_, err := completions.RecordCompletion(f.student.ID, f.lessons[0].ID, f.course.ID, 10)
	require.NoError(t, err)

	_, err = f.certs.IssueOrRegenerate(f.student.ID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrCertificateNotFound)
}

func TestIssueOrRegenerateRecoversMissedIssuance(t *testing.T) {
	f := newFixture(t, "regen_recover")
	completeCourse(t, f)

	// 课程已完成但当时签发失败，没有证书行：下载入口补签
	issued, err := f.certs.IssueOrRegenerate(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Certificate.SerialNumber)
	assert.FileExists(t, issued.FilePath)
}

func TestVerifyPublicProjection(t *testing.T) {
	f := newFixture(t, "verify")
	completeCourse(t, f)

	_, err := f.certs.EnsureIssued(f.student.ID, f.course.ID)
	require.NoError(t, err)
	cert, err := f.certs.CertificateRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	require.NoError(t, err)

	view, err := f.certs.Verify(context.Background(), cert.SerialNumber)
	require.NoError(t, err)
	assert.True(t, view.Valid)
	assert.Equal(t, cert.SerialNumber, view.CertificateID)
	assert.Equal(t, "Bob", view.StudentName)
	assert.Equal(t, "Go 基础", view.CourseTitle)
	assert.Equal(t, "Ada", view.InstructorName)
	assert.False(t, view.IssuedAt.IsZero())

	// 公开投影不泄露内部字段
	data, err := json.Marshal(view)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "filePath")
	assert.NotContains(t, fields, "finalGrade")
	assert.NotContains(t, fields, "email")
	assert.NotContains(t, fields, "userId")
	assert.NotContains(t, fields, "courseId")
}

func TestVerifyUnknownSerial(t *testing.T) {
	f := newFixture(t, "verify_unknown")

	_, err := f.certs.Verify(context.Background(), "CERT-0-0-0")
	assert.ErrorIs(t, err, util.ErrCertificateNotFound)
}

func TestGetDetailsUnknownSerial(t *testing.T) {
	f := newFixture(t, "details_unknown")

	_, err := f.certs.GetDetails("CERT-0-0-0")
	assert.ErrorIs(t, err, util.ErrCertificateNotFound)
}
