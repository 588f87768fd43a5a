package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const verifyCacheKeyPrefix = "cert_verify:"

// ArtifactGenerator 证书文件生成器，失败视为可恢复错误由调用方处理
type ArtifactGenerator interface {
	Generate(ctx context.Context, user *model.User, course *model.Course, serial string) (string, error)
}

// PublicCertificateView 公开验证接口的最小投影
// 不含文件路径、成绩、邮箱和内部数字 id。
type PublicCertificateView struct {
	Valid          bool      `json:"valid"`
	CertificateID  string    `json:"certificateId"`
	StudentName    string    `json:"studentName"`
	CourseTitle    string    `json:"courseTitle"`
	InstructorName string    `json:"instructorName"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// IssuedCertificate 签发/补生成的返回结果，供下载路径使用
type IssuedCertificate struct {
	Certificate *model.Certificate
	FilePath    string
}

type CertificateService struct {
	CertificateRepo *repository.CertificateRepository
	CourseRepo      *repository.CourseRepository
	CompletionRepo  *repository.CompletionRepository
	UserRepo        *repository.UserRepository
	Generator       ArtifactGenerator
	Redis           *redis.Client
	Cfg             *config.Config
}

func NewCertificateService(
	certificateRepo *repository.CertificateRepository,
	courseRepo *repository.CourseRepository,
	completionRepo *repository.CompletionRepository,
	userRepo *repository.UserRepository,
	generator ArtifactGenerator,
	rdb *redis.Client,
	cfg *config.Config,
) *CertificateService {
	return &CertificateService{
		CertificateRepo: certificateRepo,
		CourseRepo:      courseRepo,
		CompletionRepo:  completionRepo,
		UserRepo:        userRepo,
		Generator:       generator,
		Redis:           rdb,
		Cfg:             cfg,
	}
}

// ApplyConfig 配置热更新回调，刷新验证缓存TTL等运行时参数
func (s *CertificateService) ApplyConfig(cfg *config.Config) {
	s.Cfg = cfg
}

// EnsureIssued 课时完成触发的签发入口。调用方已确认课程 100% 完成。
// 证书已存在时为 no-op，返回 false；只有新建行时返回 true。
func (s *CertificateService) EnsureIssued(userID, courseID uint) (bool, error) {
	_, err := s.CertificateRepo.FindByUserAndCourse(userID, courseID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	_, created, err := s.issue(userID, courseID)
	return created, err
}

// IssueOrRegenerate 下载/手动触发入口：
// 行存在且文件在位时原样返回；文件缺失时补生成（不换编号、不改签发时间）；
// 行不存在时仅在课程确实已完成的情况下签发，否则按 NotFound 处理。
func (s *CertificateService) IssueOrRegenerate(userID, courseID uint) (*IssuedCertificate, error) {
	cert, err := s.CertificateRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		completed, err := s.courseCompleted(userID, courseID)
		if err != nil {
			return nil, err
		}
		if !completed {
			return nil, util.ErrCertificateNotFound
		}

		issued, _, err := s.issue(userID, courseID)
		if err != nil {
			return nil, err
		}
		return issued, nil
	}

	if cert.FilePath != "" && artifactExists(cert.FilePath) {
		return &IssuedCertificate{Certificate: cert, FilePath: cert.FilePath}, nil
	}

	return s.regenerate(cert)
}

// issue 先生成文件再注册证书行，保证不会出现有编号无文件的记录。
// 注册输掉并发竞争时丢弃刚生成的文件，复用赢家的行。
func (s *CertificateService) issue(userID, courseID uint) (*IssuedCertificate, bool, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, false, err
	}
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, false, err
	}

	serial := fmt.Sprintf("%s-%d-%d-%d", util.CertificateSerialPrefix, time.Now().Unix(), userID, courseID)

	path, err := s.Generator.Generate(context.Background(), user, course, serial)
	if err != nil {
		monitoring.CertificateIssueFailures.Inc()
		return nil, false, err
	}

	cert := &model.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: serial,
		IssuedAt:     time.Now(),
		FilePath:     path,
	}

	created, winner, err := s.CertificateRepo.CreateIfAbsent(cert)
	if err != nil {
		os.Remove(path)
		monitoring.CertificateIssueFailures.Inc()
		return nil, false, err
	}

	if !created {
		// 竞争中输掉：已有证书为准，丢弃刚生成的文件
		if path != winner.FilePath {
			os.Remove(path)
		}
		return &IssuedCertificate{Certificate: winner, FilePath: winner.FilePath}, false, nil
	}

	monitoring.CertificatesIssued.Inc()
	s.invalidateVerifyCache(winner.SerialNumber)
	logger.Log.Info("certificate issued",
		zap.Uint("userId", userID),
		zap.Uint("courseId", courseID),
		zap.String("serial", winner.SerialNumber))

	return &IssuedCertificate{Certificate: winner, FilePath: winner.FilePath}, true, nil
}

// regenerate 只重建文件并更新路径，编号与签发时间保持不变
func (s *CertificateService) regenerate(cert *model.Certificate) (*IssuedCertificate, error) {
	user, err := s.UserRepo.FindByID(cert.UserID)
	if err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(cert.CourseID)
	if err != nil {
		return nil, err
	}

	path, err := s.Generator.Generate(context.Background(), user, course, cert.SerialNumber)
	if err != nil {
		return nil, err
	}

	if err := s.CertificateRepo.UpdateFilePath(cert.ID, path); err != nil {
		return nil, err
	}
	cert.FilePath = path

	monitoring.CertificatesRegenerated.Inc()
	s.invalidateVerifyCache(cert.SerialNumber)
	logger.Log.Info("certificate artifact regenerated",
		zap.String("serial", cert.SerialNumber))

	return &IssuedCertificate{Certificate: cert, FilePath: path}, nil
}

// Verify 公开验证接口，只返回最小投影
func (s *CertificateService) Verify(ctx context.Context, serial string) (*PublicCertificateView, error) {
	if view := s.cachedVerifyView(ctx, serial); view != nil {
		return view, nil
	}

	cert, err := s.CertificateRepo.FindBySerial(serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCertificateNotFound
		}
		return nil, err
	}

	view := &PublicCertificateView{
		Valid:         true,
		CertificateID: cert.SerialNumber,
		IssuedAt:      cert.IssuedAt,
	}
	if cert.User != nil {
		view.StudentName = cert.User.Name
	}
	if cert.Course != nil {
		view.CourseTitle = cert.Course.Title
		if cert.Course.Instructor != nil {
			view.InstructorName = cert.Course.Instructor.Name
		}
	}

	s.cacheVerifyView(ctx, serial, view)
	return view, nil
}

// GetDetails 按编号返回完整证书记录，访问控制由调用方负责
func (s *CertificateService) GetDetails(serial string) (*model.Certificate, error) {
	cert, err := s.CertificateRepo.FindBySerial(serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCertificateNotFound
		}
		return nil, err
	}
	return cert, nil
}

func (s *CertificateService) ListByUser(userID uint) ([]model.Certificate, error) {
	return s.CertificateRepo.ListByUser(userID)
}

// courseCompleted 按当前已发布课时集合重新计算，不读任何缓存
func (s *CertificateService) courseCompleted(userID, courseID uint) (bool, error) {
	lessonIDs, err := s.CourseRepo.PublishedLessonIDs(courseID)
	if err != nil {
		return false, err
	}
	doneIDs, err := s.CompletionRepo.CompletedLessonIDs(userID, lessonIDs)
	if err != nil {
		return false, err
	}
	return aggregateProgress(len(lessonIDs), len(doneIDs)).Completed, nil
}

func (s *CertificateService) cachedVerifyView(ctx context.Context, serial string) *PublicCertificateView {
	if s.Redis == nil || s.Cfg.Certificate.VerifyCacheSeconds <= 0 {
		return nil
	}
	val, err := s.Redis.Get(ctx, verifyCacheKeyPrefix+serial).Result()
	if err != nil {
		return nil
	}
	var view PublicCertificateView
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		return nil
	}
	return &view
}

func (s *CertificateService) cacheVerifyView(ctx context.Context, serial string, view *PublicCertificateView) {
	if s.Redis == nil || s.Cfg.Certificate.VerifyCacheSeconds <= 0 {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	ttl := time.Duration(s.Cfg.Certificate.VerifyCacheSeconds) * time.Second
	if err := s.Redis.Set(ctx, verifyCacheKeyPrefix+serial, data, ttl).Err(); err != nil {
		logger.Log.Warn("failed to cache verify view", zap.Error(err))
	}
}

func (s *CertificateService) invalidateVerifyCache(serial string) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), verifyCacheKeyPrefix+serial)
}

func artifactExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// HTMLArtifactGenerator 渲染 HTML 证书文件，存储类型非本地时同步镜像一份到对象存储
type HTMLArtifactGenerator struct {
	Storage *StorageService
	Cfg     *config.Config
}

func NewHTMLArtifactGenerator(storage *StorageService, cfg *config.Config) *HTMLArtifactGenerator {
	return &HTMLArtifactGenerator{Storage: storage, Cfg: cfg}
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Certificate {{.Serial}}</title></head>
<body>
  <h1>结业证书</h1>
  <p>兹证明 <strong>{{.StudentName}}</strong> 已完成课程 <strong>{{.CourseTitle}}</strong>。</p>
  <p>讲师：{{.InstructorName}}</p>
  <p>签发日期：{{.IssuedDate}}</p>
  <p>证书编号：{{.Serial}}</p>
</body>
</html>
`))

func (g *HTMLArtifactGenerator) Generate(ctx context.Context, user *model.User, course *model.Course, serial string) (string, error) {
	dir := filepath.Join(g.Cfg.Storage.LocalPath, g.Cfg.Certificate.Dir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, serial+".html")
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	instructorName := ""
	if course.Instructor != nil {
		instructorName = course.Instructor.Name
	}

	data := map[string]string{
		"StudentName":    user.Name,
		"CourseTitle":    course.Title,
		"InstructorName": instructorName,
		"IssuedDate":     time.Now().Format(util.DateFormat),
		"Serial":         serial,
	}

	if err := certificateTemplate.Execute(out, data); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	// 非本地存储时镜像一份，便于CDN分发；失败只记日志，本地文件仍可服务下载
	if g.Cfg.Storage.Type != util.StorageLocal {
		objectName := filepath.ToSlash(filepath.Join(g.Cfg.Certificate.Dir, serial+".html"))
		if _, err := g.Storage.Provider.UploadFile(ctx, objectName, path, "text/html"); err != nil {
			logger.Log.Warn("failed to mirror certificate artifact",
				zap.String("serial", serial), zap.Error(err))
		}
	}

	return path, nil
}
