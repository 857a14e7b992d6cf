package main

import (
	"context"
	"fmt"
	"log"

	"earnaura/internal/config"
	"earnaura/internal/database"
	"earnaura/internal/domain/adminrequest"
	"earnaura/internal/domain/auth"
	"earnaura/internal/domain/notification"
	"earnaura/internal/domain/realtime"
	"earnaura/internal/pkg/jwt"
	"earnaura/internal/pkg/logger"

	"go.uber.org/zap"
)

const seedPassword = "password123"

type seedStudent struct {
	name    string
	email   string
	college string
	instEm  string
	outcome string
}

var students = []seedStudent{
	{"Aigerim Sadykova", "aigerim@example.com", "Nazarbayev University", "a.sadykova@nu.edu.kz", "pending"},
	{"Daniyar Omarov", "daniyar@example.com", "MIT", "domarov@mit.edu", "under_review"},
	{"Priya Raman", "priya@example.com", "University of Oxford", "priya.raman@ox.ac.uk", "approved"},
	{"Lucas Meyer", "lucas@example.com", "Acme Bootcamp", "lucas@acme-bootcamp.io", "rejected"},
}

func main() {
	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("DB connection failed", zap.Error(err))
	}

	zl.Info("running AutoMigrate")
	if err := database.Migrate(db,
		&auth.User{},
		&notification.Notification{},
		&adminrequest.AdminRequest{},
		&adminrequest.Document{},
	); err != nil {
		zl.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// child tables first
	zl.Info("cleaning old data")
	for _, table := range []string{"notifications", "admin_request_documents", "admin_requests", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			zl.Fatal("cleanup failed", zap.String("table", table), zap.Error(err))
		}
	}

	ctx := context.Background()
	hub := realtime.NewHub(zl)
	publisher := realtime.NewPublisher(realtime.NewMemoryBroker(hub), zl)

	authService := auth.NewService(auth.NewUserRepository(db), jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL), zl)
	notifService := notification.NewService(notification.NewNotificationRepository(db), publisher, zl)
	requests := adminrequest.NewService(
		adminrequest.NewRepository(db),
		adminrequest.NewDocumentStore(cfg.UploadDir, cfg.MaxDocumentBytes),
		authService,
		notifService,
		publisher,
		adminrequest.Config{InstitutionalDomains: cfg.InstitutionalDomains},
		zl,
	)

	adminEmail := cfg.SuperAdminEmail
	if adminEmail == "" {
		adminEmail = "admin@earnaura.local"
	}
	adminPassword := cfg.SuperAdminPassword
	if adminPassword == "" {
		adminPassword = "admin12345"
	}
	if err := authService.EnsureSuperAdmin(ctx, adminEmail, adminPassword); err != nil {
		zl.Fatal("create super admin", zap.Error(err))
	}
	admin, err := authService.Login(ctx, auth.LoginRequest{Email: adminEmail, Password: adminPassword})
	if err != nil {
		zl.Fatal("login super admin", zap.Error(err))
	}
	reviewerID := admin.User.ID

	for _, s := range students {
		res, err := authService.Register(ctx, auth.RegisterRequest{
			Name:        s.name,
			Email:       s.email,
			Password:    seedPassword,
			CollegeName: s.college,
		})
		if err != nil {
			zl.Fatal("register student", zap.String("email", s.email), zap.Error(err))
		}
		userID := res.User.ID

		req, err := requests.Submit(ctx, userID, adminrequest.SubmitRequest{
			FullName:           s.name,
			CollegeName:        s.college,
			RequestedAdminType: adminrequest.AdminTypeCampus,
			InstitutionalEmail: s.instEm,
			Motivation:         fmt.Sprintf("I coordinate student events at %s and would like to publish them for everyone on campus.", s.college),
		})
		if err != nil {
			zl.Fatal("submit request", zap.String("email", s.email), zap.Error(err))
		}

		if s.outcome != "rejected" {
			if _, err := requests.VerifyEmail(ctx, userID, req.ID); err != nil {
				zl.Warn("verify email", zap.String("email", s.instEm), zap.Error(err))
			}
		}

		switch s.outcome {
		case "under_review":
			_, err = requests.StartReview(ctx, reviewerID, req.ID)
		case "approved":
			_, err = requests.Review(ctx, reviewerID, req.ID, adminrequest.ReviewRequest{
				Decision:    adminrequest.DecisionApprove,
				ReviewNotes: "Verified with the registrar",
			})
		case "rejected":
			_, err = requests.Review(ctx, reviewerID, req.ID, adminrequest.ReviewRequest{
				Decision:        adminrequest.DecisionReject,
				RejectionReason: "Not an accredited institution",
			})
		}
		if err != nil {
			zl.Fatal("advance request", zap.Int64("request_id", req.ID), zap.Error(err))
		}

		zl.Info("seeded student", zap.String("email", s.email), zap.String("request", s.outcome))
	}

	zl.Info("seed completed",
		zap.String("super_admin", adminEmail),
		zap.String("student_password", seedPassword))
}
