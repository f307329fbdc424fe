//go:build ignore

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
)

func main() {
	if err := os.MkdirAll("schemas", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	for _, version := range []int{1, 2} {
		data, err := plan.GenerateRunRequestJSONSchema(version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating run-request v%d schema: %v\n", version, err)
			os.Exit(1)
		}
		write(fmt.Sprintf("run-request-v%d.json", version), data)
	}

	data, err := plan.GeneratePlanJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating plan schema: %v\n", err)
		os.Exit(1)
	}
	write("execution-plan.json", data)
}

func write(name string, data []byte) {
	path := filepath.Join("schemas", name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", path)
}
