package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/technosupport/vms-analytics/internal/tokens"
)

// token_gen prints an access token for local testing against the API.
func main() {
	userID := flag.String("user", "00000000-0000-0000-0000-000000000002", "user id (sub claim)")
	companyID := flag.String("company", "00000000-0000-0000-0000-000000000001", "company id")
	ttl := flag.Duration("ttl", tokens.AccessTTL, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	key := os.Getenv("JWT_SIGNING_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "JWT_SIGNING_KEY is not set")
		os.Exit(1)
	}

	mgr := tokens.NewManager(key)
	token, err := mgr.GenerateToken(*userID, *companyID, tokens.Access, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).UTC().Format(time.RFC3339))
}
