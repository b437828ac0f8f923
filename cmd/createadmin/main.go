package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/database"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/service"
)

// 创建管理员账号；邮箱已注册时提升为管理员并重置密码
//
//	go run ./cmd/createadmin -email admin@example.com -password secret
var (
	configPath = flag.String("config", "", "path to config file (default $CONFIG_PATH or config.yaml)")
	email      = flag.String("email", "", "admin email")
	password   = flag.String("password", "", "admin password, falls back to $ADMIN_PASSWORD")
	firstName  = flag.String("first-name", "Admin", "first name")
	lastName   = flag.String("last-name", "", "last name")
)

func main() {
	flag.Parse()

	pass := *password
	if pass == "" {
		pass = os.Getenv("ADMIN_PASSWORD")
	}
	if strings.TrimSpace(*email) == "" || len(pass) < 6 {
		flag.Usage()
		log.Fatal("email is required and password must be at least 6 characters")
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	authService := service.NewAuthService(repository.NewUserRepository(db), cfg)
	user, created, err := authService.EnsureAdmin(context.Background(), &dto.RegisterRequest{
		FirstName: *firstName,
		LastName:  *lastName,
		Email:     *email,
		Password:  pass,
	})
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	if created {
		log.Printf("Admin created: id=%d email=%s", user.ID, user.Email)
	} else {
		log.Printf("Existing user promoted to admin: id=%d email=%s", user.ID, user.Email)
	}
}
