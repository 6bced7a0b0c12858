// devtoken mints an access token with the shared signing secret, for local
// development and seeding. The production issuer is the backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/token"
)

func main() {
	var (
		email    = flag.String("email", "student@example.com", "subject email")
		roleName = flag.String("role", "student", "user role (student/professor/manager)")
		userID   = flag.Int("id", 1, "user id")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
		issuer   = flag.String("issuer", "soutenance-backend", "issuer claim")
	)
	flag.Parse()

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}

	if _, ok := role.Parse(*roleName); !ok {
		log.Fatalf("unknown role %q", *roleName)
	}

	tokens := token.NewService(secret, *issuer, *ttl)
	signed, expiry, err := tokens.IssueWithTTL(*email, *roleName, *userID, *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(signed)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiry.Format(time.RFC3339))
}
