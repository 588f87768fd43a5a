package repository

import (
	"errors"
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindBySerial 按公开证书编号查找，预加载持有人、课程和讲师
func (r *CertificateRepository) FindBySerial(serial string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Preload("User").Preload("Course").Preload("Course.Instructor").
		Where("serial_number = ?", serial).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// CreateIfAbsent 注册证书。(user_id, course_id) 唯一索引保证至多一张；
// 输掉并发竞争时读回已存在的行作为结果返回，created 为 false。
func (r *CertificateRepository) CreateIfAbsent(cert *model.Certificate) (bool, *model.Certificate, error) {
	err := r.DB.Create(cert).Error
	if err == nil {
		return true, cert, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil, err
	}

	existing, findErr := r.FindByUserAndCourse(cert.UserID, cert.CourseID)
	if findErr != nil {
		return false, nil, findErr
	}
	return false, existing, nil
}

// UpdateFilePath 补生成后更新文件路径，不改变编号和签发时间
func (r *CertificateRepository) UpdateFilePath(certID uint, path string) error {
	return r.DB.Model(&model.Certificate{}).
		Where("id = ?", certID).
		Update("file_path", path).Error
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Preload("Course").Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}
