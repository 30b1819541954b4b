package auth

import (
	"log"
	"os"

	"github.com/google/uuid"
)

const sessionCookieName = "admin_session_token"

// AdminUser holds the credentials for the admin user, loaded directly
// from environment variables.
type AdminUser struct {
	Username string
	Password string
}

// Service holds the admin credentials and the session token for the
// cookie-based admin login. It is constructed once at startup and passed
// to the router instead of living in package globals.
type Service struct {
	admin AdminUser
	token string
}

// NewServiceFromEnv reads the admin username and password from the
// ADMIN_USERNAME and ADMIN_PASSWORD environment variables and generates
// a fresh session token for this process. Missing credentials disable
// login (and with it every admin-only route) with a logged warning.
func NewServiceFromEnv() *Service {
	admin := AdminUser{
		Username: os.Getenv("ADMIN_USERNAME"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}

	if admin.Username == "" {
		log.Println("WARNING: ADMIN_USERNAME environment variable not set.")
	}
	if admin.Password == "" {
		log.Println("WARNING: ADMIN_PASSWORD environment variable not set.")
	}

	return NewService(admin)
}

// NewService builds a Service around explicit credentials.
func NewService(admin AdminUser) *Service {
	return &Service{
		admin: admin,
		token: uuid.New().String(),
	}
}
