// AngelaMos | 2026
// main.go

// Command keygen generates the ES256 keypair the API signs service
// tokens with, and can mint a token for a caller during setup.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carterperez-dev/entitlements/internal/auth"
	"github.com/carterperez-dev/entitlements/internal/config"
)

func main() {
	privatePath := flag.String("private", "keys/private.pem", "private key output path")
	publicPath := flag.String("public", "keys/public.pem", "public key output path")
	mint := flag.Bool("mint", false, "mint a service token with an existing keypair")
	serviceID := flag.String("service", "", "service id for the minted token")
	scope := flag.String("scope", "entitlements", "scope for the minted token")
	expire := flag.Duration("expire", 15*time.Minute, "token lifetime")
	flag.Parse()

	if err := run(*privatePath, *publicPath, *mint, *serviceID, *scope, *expire); err != nil {
		slog.Error("keygen failed", "error", err)
		os.Exit(1)
	}
}

func run(
	privatePath, publicPath string,
	mint bool,
	serviceID, scope string,
	expire time.Duration,
) error {
	if !mint {
		if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s and %s\n", privatePath, publicPath)
		return nil
	}

	if serviceID == "" {
		return fmt.Errorf("-service is required with -mint")
	}

	manager, err := auth.NewJWTManager(config.JWTConfig{
		PrivateKeyPath: privatePath,
		PublicKeyPath:  publicPath,
		TokenExpire:    expire,
		Issuer:         "entitlements",
		Audience:       "entitlements-api",
	})
	if err != nil {
		return err
	}

	token, err := manager.CreateServiceToken(auth.ServiceTokenClaims{
		ServiceID: serviceID,
		Scope:     scope,
	})
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
