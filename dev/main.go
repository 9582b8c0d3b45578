package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

const stateDir = "dev/.state"

type step struct {
	name string
	run  func() error
}

func steps(localStack bool) []step {
	list := []step{}
	if localStack {
		list = append(list, step{"local stack", CreateLocalStack})
	}
	return append(
		list,
		step{"history database", CreateHistoryDB},
		step{"image cache", CreateImageCache},
	)
}

func create(recreate, localStack bool) error {
	_, err := os.Stat("go.mod")
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("run the dev setup from the repository root (next to go.mod)")
	}

	if recreate {
		slog.Info("removing previous dev state", "dir", stateDir)
		err = os.RemoveAll(stateDir)
		if err != nil {
			return err
		}
	}
	err = os.MkdirAll(stateDir, 0777)
	if err != nil {
		return err
	}

	for _, s := range steps(localStack) {
		err = s.run()
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		slog.Info("dev step done", "step", s.name)
	}
	PrintConfigLocations()
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "remove dev/.state before setting up")
	localStack := flag.Bool("local-stack", false, "start redis and minio with docker compose")
	flag.Parse()

	err := create(*recreate, *localStack)
	if err != nil {
		slog.Error("dev setup failed", "err", err.Error())
		os.Exit(1)
	}
	slog.Info("dev environment ready")
}
