// 重算全量选课进度脚本
//
// 正常情况下进度在每次完成课时时同步写回选课记录。
// 此脚本用于历史数据修复，例如课时发布状态批量调整后，
// 按当前已发布课时重新聚合所有选课记录的进度和完成水位。
//
// 用法: go run scripts/backfill_progress.go

package main

import (
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	progressService := service.NewProgressService(
		repository.NewCourseRepository(db),
		repository.NewCompletionRepository(db),
		repository.NewEnrollmentRepository(db),
		nil, // 回填不触发证书签发
	)

	var enrollments []model.Enrollment
	if err := db.Find(&enrollments).Error; err != nil {
		log.Fatalf("读取选课记录失败: %v", err)
	}

	log.Printf("开始重算 %d 条选课记录的进度...", len(enrollments))

	var failed int
	for _, enrollment := range enrollments {
		progress, err := progressService.ComputeCourseProgress(enrollment.UserID, enrollment.CourseID)
		if err != nil {
			log.Printf("计算进度失败 user=%d course=%d: %v", enrollment.UserID, enrollment.CourseID, err)
			failed++
			continue
		}
		if _, err := progressService.ApplyProgress(enrollment.UserID, enrollment.CourseID, progress); err != nil {
			log.Printf("写回进度失败 user=%d course=%d: %v", enrollment.UserID, enrollment.CourseID, err)
			failed++
		}
	}

	log.Printf("完成！成功 %d 条，失败 %d 条", len(enrollments)-failed, failed)
}
