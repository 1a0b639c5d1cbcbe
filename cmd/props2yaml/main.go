package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confpack/internal/properties"
)

func main() {
	kingpinApp := kingpin.New("props2yaml", "Converts Java .properties text to YAML, with key[index] array support")
	inputFile := kingpinApp.Arg("input-file", "Properties file to convert (default: stdin)").String()
	outputFile := kingpinApp.Flag("output-file", "Output file path (default: stdout)").Short('o').String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	if err := run(*inputFile, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "props2yaml: %v\n", err)
		os.Exit(1)
	}
}

func run(inputFile, outputFile string) error {
	var (
		text []byte
		err  error
	)
	if inputFile == "" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(inputFile)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	converted := properties.Convert(string(text))
	data, err := yaml.Marshal(converted)
	if err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}

	if outputFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputFile, data, 0o644)
}
