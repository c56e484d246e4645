// ledgerchat CLI - encrypted messages over the shared ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/chat"
	"github.com/ledgerchat/ledgerchat/internal/config"
	"github.com/ledgerchat/ledgerchat/internal/funding"
	"github.com/ledgerchat/ledgerchat/internal/keystore"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()

	level := zerolog.WarnLevel
	if os.Getenv("DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	exitOnError(err)
	defer store.Close()

	led := ledger.New(store, cfg.Namespace, logger)
	funds := funding.New(store, cfg.Namespace, logger)
	service := chat.New(led, funds, logger)
	keys := keystore.New(cfg.KeystoreDir)

	switch cmd := os.Args[1]; cmd {
	case "setup":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat setup <user>")
			os.Exit(1)
		}
		user := os.Args[2]
		if _, err := keys.Load(user); err == nil {
			fmt.Printf("Key material for %q already exists\n", user)
			return
		}
		kp, err := keys.Generate(user)
		exitOnError(err)
		fmt.Printf("Created %q with identity %s\n", user, kp.Identity)

	case "balance":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat balance <user>")
			os.Exit(1)
		}
		kp, err := keys.Load(os.Args[2])
		exitOnError(err)
		balance, err := funds.Balance(ctx, kp.Identity)
		exitOnError(err)
		fmt.Printf("%s: %d credits\n", os.Args[2], balance)

	case "airdrop":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat airdrop <user> [amount]")
			os.Exit(1)
		}
		kp, err := keys.Load(os.Args[2])
		exitOnError(err)
		var amount uint64
		if len(os.Args) > 3 {
			amount, err = strconv.ParseUint(os.Args[3], 10, 64)
			exitOnError(err)
		}
		receipt, err := funds.Airdrop(ctx, kp.Identity, amount)
		exitOnError(err)
		balance, err := funds.Balance(ctx, kp.Identity)
		exitOnError(err)
		fmt.Printf("Airdrop %s: balance is now %d credits\n", receipt, balance)

	case "init":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat init <user> [access-key]")
			os.Exit(1)
		}
		if _, err := keys.Load(os.Args[2]); err != nil {
			exitOnError(err)
		}
		var err error
		if len(os.Args) > 3 {
			// An access key makes the namespace private: reads through the
			// gateway must present it.
			err = led.InitializePrivate(ctx, os.Args[3])
		} else {
			err = led.Initialize(ctx)
		}
		if errors.Is(err, ledger.ErrAlreadyInitialized) {
			fmt.Printf("Namespace %q already initialized\n", cfg.Namespace)
			return
		}
		exitOnError(err)
		fmt.Printf("Namespace %q initialized\n", cfg.Namespace)

	case "send":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat send <from> <to> <message>")
			os.Exit(1)
		}
		from, err := keys.Load(os.Args[2])
		exitOnError(err)
		// Only the recipient's public halves are needed to send.
		to, err := keys.LoadPublic(os.Args[3])
		exitOnError(err)

		creds := chat.Credentials{Identity: from.Identity, SigningKey: from.SigningKey}
		messageID, err := service.Send(ctx, creds, to.Identity, to.EncryptionKey, []byte(os.Args[4]))
		exitOnError(err)
		fmt.Printf("Sent message %d\n", messageID)

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat read <user>")
			os.Exit(1)
		}
		kp, err := keys.Load(os.Args[2])
		exitOnError(err)

		creds := chat.Credentials{Identity: kp.Identity, SigningKey: kp.SigningKey}
		inbox, err := service.Receive(ctx, creds, kp.EncryptionKey)
		exitOnError(err)
		if len(inbox) == 0 {
			fmt.Println("No messages")
			return
		}
		for _, msg := range inbox {
			ts := time.Unix(msg.Timestamp, 0).Format("2006-01-02 15:04:05")
			if msg.Err != nil {
				fmt.Printf("[%s] %s: <undecryptable: %v>\n", ts, msg.Sender.Short(), msg.Err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", ts, msg.Sender.Short(), msg.Plaintext)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// openStore opens the configured ledger backend.
func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		return ledger.NewMemoryStore(), nil
	case config.BackendSQLite:
		return ledger.NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		return ledger.NewRedisStore(ctx, cfg.RedisURL)
	case config.BackendPostgres:
		return ledger.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

func usage() {
	fmt.Println(`ledgerchat - encrypted messages over a public append-only ledger

Usage: ledgerchat <command> [options]

Commands:
  setup <user>              Generate and store key material for a user
  balance <user>            Show a user's funding balance
  airdrop <user> [amount]   Credit a user's funding account
  init <user> [access-key]  Initialize the namespace, private when a key is given
  send <from> <to> <msg>    Encrypt and append a message
  read <user>               Decrypt and print a user's inbox
  help                      Show this help

Environment:
  LEDGER_BACKEND   memory | sqlite | redis | postgres (default sqlite)
  SQLITE_PATH      SQLite file path (default ./data/ledgerchat.db)
  REDIS_URL        Redis DSN for the redis backend
  DATABASE_URL     Postgres DSN for the postgres backend
  NAMESPACE        Chat namespace (default "global")
  KEYSTORE_DIR     Key material directory (default ~/.ledgerchat)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
