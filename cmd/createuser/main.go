package main

import (
	"errors"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/repository"
	"github.com/raushan728/studyhub-backend/internal/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// createuser seeds a platform account so the messaging API has
// identities to work with. Account management proper lives in the
// wider StudyHub platform.
func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	password := flag.String("password", "", "password")
	role := flag.String("role", "user", "role (user or admin)")
	avatar := flag.String("avatar", "", "avatar URL")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if *name == "" || *email == "" || *password == "" {
		log.Fatal("name, email and password are required")
	}
	normalizedEmail := validation.NormalizeEmail(*email)
	if !validation.ValidateEmail(normalizedEmail) {
		log.Fatal("invalid email address")
	}
	if !validation.ValidatePassword(*password) {
		log.Fatalf("password must be at least %d characters", validation.PasswordMinLength())
	}
	if *role != "user" && *role != "admin" {
		log.Fatal("role must be user or admin")
	}

	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	userRepo := repository.NewUserRepository(db)

	if _, err := userRepo.FindByEmail(normalizedEmail); err == nil {
		log.Fatalf("account already exists for %s", normalizedEmail)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal("Failed to check existing account:", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	user := &models.User{
		Name:         *name,
		Email:        normalizedEmail,
		PasswordHash: string(hash),
		Avatar:       *avatar,
		Role:         *role,
		IsActive:     true,
	}
	if err := userRepo.Create(user); err != nil {
		log.Fatal("Failed to create account:", err)
	}

	log.Printf("Created %s account id=%d email=%s", user.Role, user.ID, user.Email)
}
