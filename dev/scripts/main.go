package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type script struct {
	name        string
	description string
	steps       [][]string
}

var scripts = []script{
	{
		name:        "dev:apply_db_schema",
		description: "apply the publish history schema to dev/.state/lunchbot.db",
		steps: [][]string{{
			"atlas", "schema", "apply",
			"-u", "sqlite://dev/.state/lunchbot.db",
			"--to", "file://services/lunchbot/db/schema.sql",
			"--dev-url", "sqlite://dev?mode=memory",
		}},
	},
	{
		name:        "dev:sqlc",
		description: "regenerate services/lunchbot/db from query.sql",
		steps:       [][]string{{"sqlc", "generate", "-f", "services/lunchbot/sqlc.yaml"}},
	},
	{
		name:        "dev:stack_down",
		description: "stop the redis and minio containers",
		steps:       [][]string{{"docker", "compose", "-f", "dev/local_stack/docker-compose.yml", "down"}},
	},
	{
		name:        "dev:test",
		description: "run the unit tests with the race detector",
		steps:       [][]string{{"go", "test", "-race", "./..."}},
	},
}

func find(name string) (script, bool) {
	for _, s := range scripts {
		if s.name == name {
			return s, true
		}
	}
	return script{}, false
}

func run(args []string) error {
	fmt.Printf("$ %s\n", strings.Join(args, " "))
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func usage() {
	fmt.Println("Scripts:")
	for _, s := range scripts {
		fmt.Printf("\t%-22s %s\n", s.name, s.description)
	}
}

func main() {
	flag.Parse()

	s, ok := find(flag.Arg(0))
	if !ok {
		fmt.Printf("'%s' is not a valid script.\n", flag.Arg(0))
		usage()
		os.Exit(1)
	}

	for _, step := range s.steps {
		err := run(step)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", s.name, err)
			os.Exit(1)
		}
	}
}
