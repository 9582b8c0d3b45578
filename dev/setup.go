package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	devenv "lunchbot/dev/env"
	lunchbotdb "lunchbot/services/lunchbot/db"
)

func cmd(name string, args ...string) error {
	fmt.Printf("$ %s %s\n", name, strings.Join(args, " "))
	c := exec.Command(name, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	err := c.Run()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// CreateLocalStack starts redis and minio for the shared lock and the s3
// remote.
func CreateLocalStack() error {
	return cmd("docker", "compose", "-f", "dev/local_stack/docker-compose.yml", "up", "-d", "--wait")
}

func createDb(filename, schema string) error {
	dbPath, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(dbPath)
	if err == nil {
		fmt.Println("database already created at", dbPath)
		return nil
	}

	fmt.Println("creating database at", dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

func CreateHistoryDB() error {
	return createDb("lunchbot.db", lunchbotdb.Schema)
}

func CreateImageCache() error {
	dir, err := devenv.ResolvePath("<dev_state>/images")
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0777)
}

func PrintConfigLocations() {
	slog.Info("copy lunchbot.example.json5 to lunchbot.json5 (or write a .env file) in the repository root, HISTORY_DB_FILE=<dev_state>/lunchbot.db and lock.redis_addr=localhost:6379 match the local stack.")
}
