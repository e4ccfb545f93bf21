package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"nftlend/cmd/internal/secret"
	"nftlend/config"
	"nftlend/crypto"
	"nftlend/rpc"
)

func main() {
	var (
		outPath string
		keyPath string
		issuer  string
		ttl     time.Duration
	)
	flag.StringVar(&outPath, "out", "./wallet.json", "where to write a newly generated keypair")
	flag.StringVar(&keyPath, "key", "", "existing keypair file; skips generation when set")
	flag.StringVar(&issuer, "issuer", "nftlend", "token issuer, must match the daemon's auth.issuer")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	var (
		key crypto.PrivateKey
		err error
	)
	if keyPath != "" {
		key, err = crypto.LoadKeypairFile(keyPath)
		if err != nil {
			log.Fatalf("load keypair: %v", err)
		}
	} else {
		key, err = crypto.GeneratePrivateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		if err := crypto.SaveKeypairFile(outPath, key); err != nil {
			log.Fatalf("save keypair: %v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote keypair to %s\n", outPath)
	}

	address := key.PublicKey()
	fmt.Printf("address: %s\n", address)

	authSecret, err := secret.NewSource(config.EnvAuthSecret, "Enter RPC auth secret: ").Get()
	if errors.Is(err, secret.ErrUnavailable) {
		fmt.Fprintf(os.Stderr, "%s not set; no token issued\n", config.EnvAuthSecret)
		return
	}
	if err != nil {
		log.Fatalf("auth secret: %v", err)
	}
	token, err := rpc.IssueToken(authSecret, issuer, address, ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("token: %s\n", token)
}
