package database

import (
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 把唯一键冲突翻译成 gorm.ErrDuplicatedKey，证书注册依赖这个判断
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式下默认不迁移，通过 -migrate 参数强制执行
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		err = db.AutoMigrate(
			&model.User{},
			&model.Course{},
			&model.Lesson{},
			&model.Enrollment{},
			&model.LessonCompletion{},
			&model.Certificate{},
		)

		if err != nil {
			return nil, err
		}

		log.Println("Database migration completed")
	}

	// 首次启动时创建默认管理员账号
	var count int64
	db.Model(&model.User{}).Count(&count)
	if count == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("admin123456"), bcrypt.DefaultCost)
		if err == nil {
			admin := &model.User{
				Name:     "Administrator",
				Email:    "admin@lms.local",
				Password: string(hashed),
				Role:     model.Admin,
			}
			db.Create(admin)
			log.Println("Default admin account created: admin@lms.local")
		}
	}

	return db, nil
}
