// Command admintoken prints an admin bearer token signed with JWT_SECRET.
//
//	admintoken -sub alice -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", cfg.JWTTTL, "token lifetime")
	flag.Parse()

	if !cfg.AuthEnabled() {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set; admin routes are open and need no token")
		os.Exit(1)
	}

	token, err := auth.New(cfg.JWTSecret, *ttl).Issue(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
