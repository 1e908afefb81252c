// encrypt-credential produces the passwordCrypto envelopes the service
// accepts, and generates master secrets.
//
// Usage:
//
//	go run ./scripts/encrypt-credential -generate-key
//	echo -n 's3nh@' | go run ./scripts/encrypt-credential
//	go run ./scripts/encrypt-credential -value='s3nh@'
//	go run ./scripts/encrypt-credential -decrypt -value=<envelope>
//
// ENCRYPTION_KEY is read from the environment or from .env.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/grez-lucas/livelo-scraper/internal/envelope"
)

func main() {
	generate := flag.Bool("generate-key", false, "Print a new random master secret and exit")
	decrypt := flag.Bool("decrypt", false, "Decrypt an envelope instead of encrypting")
	value := flag.String("value", "", "Plaintext (or envelope with -decrypt); read from stdin when empty")
	flag.Parse()

	if err := run(*generate, *decrypt, *value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(generate, decrypt bool, value string) error {
	if generate {
		key, err := envelope.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	codec, err := envelope.New(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}

	if value == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}

	if decrypt {
		if !envelope.IsEncrypted(value) {
			return errors.New("value is not an envelope")
		}
		plain, err := codec.Decrypt(value)
		if err != nil {
			return err
		}
		fmt.Println(plain)
		return nil
	}

	env, err := codec.Encrypt(value)
	if err != nil {
		return err
	}
	fmt.Println(env)
	return nil
}
