package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// stubGenerator 在临时目录里写一个占位文件，可配置为失败
type stubGenerator struct {
	dir   string
	fail  bool
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, user *model.User, course *model.Course, serial string) (string, error) {
	if g.fail {
		return "", errors.New("generator unavailable")
	}
	g.calls++
	path := filepath.Join(g.dir, serial+".html")
	if err := os.WriteFile(path, []byte("<html>"+serial+"</html>"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fixture struct {
	db          *gorm.DB
	generator   *stubGenerator
	progress    *ProgressService
	certs       *CertificateService
	enrollments *repository.EnrollmentRepository

	instructor *model.User
	student    *model.User
	course     *model.Course
	lessons    []*model.Lesson
}

// newFixture 建一门有两个已发布课时和一个未发布课时的课程，学生已选课
func newFixture(t *testing.T, name string) *fixture {
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

	instructor := &model.User{Name: "Ada", Email: "ada@" + name + ".local", Password: "x", Role: model.Instructor}
	require.NoError(t, db.Create(instructor).Error)
	student := &model.User{Name: "Bob", Email: "bob@" + name + ".local", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(student).Error)

	course := &model.Course{Title: "Go 基础", InstructorID: instructor.ID, Published: true}
	require.NoError(t, db.Create(course).Error)

	lessons := []*model.Lesson{
		{CourseID: course.ID, Title: "第一课", Order: 1, Published: true},
		{CourseID: course.ID, Title: "第二课", Order: 2, Published: true},
		{CourseID: course.ID, Title: "草稿课", Order: 3, Published: false},
	}
	for _, lesson := range lessons {
		require.NoError(t, db.Create(lesson).Error)
	}

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	require.NoError(t, enrollmentRepo.Create(&model.Enrollment{UserID: student.ID, CourseID: course.ID}))

	generator := &stubGenerator{dir: t.TempDir()}
	cfg := &config.Config{}

	certs := NewCertificateService(
		repository.NewCertificateRepository(db),
		repository.NewCourseRepository(db),
		repository.NewCompletionRepository(db),
		repository.NewUserRepository(db),
		generator,
		nil,
		cfg,
	)
	progress := NewProgressService(
		repository.NewCourseRepository(db),
		repository.NewCompletionRepository(db),
		enrollmentRepo,
		certs,
	)

	return &fixture{
		db:          db,
		generator:   generator,
		progress:    progress,
		certs:       certs,
		enrollments: enrollmentRepo,
		instructor:  instructor,
		student:     student,
		course:      course,
		lessons:     lessons,
	}
}

func TestAggregateProgress(t *testing.T) {
	cases := []struct {
		total, done int
		percentage  float64
		completed   bool
	}{
		{4, 3, 75, false},
		{4, 4, 100, true},
		{3, 1, 33.33, false},
		{3, 2, 66.67, false},
		{0, 0, 0, false}, // 没有已发布课时的课程永远不算完成
	}
	for _, c := range cases {
		got := aggregateProgress(c.total, c.done)
		assert.Equal(t, c.percentage, got.Percentage, "total=%d done=%d", c.total, c.done)
		assert.Equal(t, c.completed, got.Completed, "total=%d done=%d", c.total, c.done)
	}
}

func TestCompleteLessonFlow(t *testing.T) {
	f := newFixture(t, "flow")

	// 完成第一课：50%，未完课，无证书
	result, err := f.progress.CompleteLesson(f.student.ID, f.lessons[0].ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, result.LessonProgress.TimeSpent)
	assert.Equal(t, 2, result.CourseProgress.TotalLessons)
	assert.Equal(t, 1, result.CourseProgress.CompletedLessons)
	assert.Equal(t, 50.0, result.CourseProgress.Percentage)
	assert.False(t, result.CourseProgress.Completed)
	assert.False(t, result.CertificateGenerated)

	// 完成第二课：100%，完课，本次签发证书
	result, err = f.progress.CompleteLesson(f.student.ID, f.lessons[1].ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.CourseProgress.Percentage)
	assert.True(t, result.CourseProgress.Completed)
	assert.True(t, result.CertificateGenerated)

	enrollment, err := f.enrollments.FindByUserAndCourse(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, enrollment.Progress)
	assert.True(t, enrollment.Completed)
	require.NotNil(t, enrollment.CompletedAt)
	completedAt := *enrollment.CompletedAt

	// 重复完成第二课：幂等，时长不回退，不再报告新证书
	result, err = f.progress.CompleteLesson(f.student.ID, f.lessons[1].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, result.LessonProgress.TimeSpent)
	assert.True(t, result.CourseProgress.Completed)
	assert.False(t, result.CertificateGenerated)

	enrollment, err = f.enrollments.FindByUserAndCourse(f.student.ID, f.course.ID)
	require.NoError(t, err)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, enrollment.CompletedAt.Equal(completedAt), "completion watermark must not move")

	var certCount int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&certCount).Error)
	assert.Equal(t, int64(1), certCount)
}

func TestCompleteLessonUnknownLesson(t *testing.T) {
	f := newFixture(t, "unknown_lesson")

	_, err := f.progress.CompleteLesson(f.student.ID, 99999, 10)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestCompleteLessonRequiresEnrollment(t *testing.T) {
	f := newFixture(t, "not_enrolled")

	outsider := &model.User{Name: "Eve", Email: "eve@not_enrolled.local", Password: "x"}
	require.NoError(t, f.db.Create(outsider).Error)

	_, err := f.progress.CompleteLesson(outsider.ID, f.lessons[0].ID, 10)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestUnpublishedLessonsExcludedFromProgress(t *testing.T) {
	f := newFixture(t, "unpublished")

	// 完成两个已发布课时即 100%，草稿课不计入分母
	_, err := f.progress.CompleteLesson(f.student.ID, f.lessons[0].ID, 10)
	require.NoError(t, err)
	result, err := f.progress.CompleteLesson(f.student.ID, f.lessons[1].ID, 10)
	require.NoError(t, err)
	assert.True(t, result.CourseProgress.Completed)

	// 草稿课发布后分母变大，进度回落，完成水位清空
	f.lessons[2].Published = true
	require.NoError(t, f.db.Save(f.lessons[2]).Error)

	progress, err := f.progress.GetCourseProgress(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalLessons)
	assert.Equal(t, 66.67, progress.Percentage)
	assert.False(t, progress.Completed)

	_, err = f.progress.ApplyProgress(f.student.ID, f.course.ID, progress)
	require.NoError(t, err)

	enrollment, err := f.enrollments.FindByUserAndCourse(f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.False(t, enrollment.Completed)
	assert.Nil(t, enrollment.CompletedAt)
}

func TestGetCourseProgressUnknownCourse(t *testing.T) {
	f := newFixture(t, "unknown_course")

	_, err := f.progress.GetCourseProgress(f.student.ID, 99999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestCertificateFailureDoesNotFailCompletion(t *testing.T) {
	f := newFixture(t, "cert_failure")
	f.generator.fail = true

	_, err := f.progress.CompleteLesson(f.student.ID, f.lessons[0].ID, 10)
	require.NoError(t, err)

	// 课程完成但签发失败：完成调用本身仍然成功
	result, err := f.progress.CompleteLesson(f.student.ID, f.lessons[1].ID, 10)
	require.NoError(t, err)
	assert.True(t, result.CourseProgress.Completed)
	assert.False(t, result.CertificateGenerated)

	var certCount int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&certCount).Error)
	assert.Equal(t, int64(0), certCount)
}

func TestListLessonCompletions(t *testing.T) {
	f := newFixture(t, "list_completions")

	_, err := f.progress.CompleteLesson(f.student.ID, f.lessons[0].ID, 10)
	require.NoError(t, err)

	completions, err := f.progress.ListLessonCompletions(f.lessons[0].ID)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, f.student.ID, completions[0].UserID)

	_, err = f.progress.ListLessonCompletions(99999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}
