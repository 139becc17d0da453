// Command formschemagen converts an external EMR assessment schema into
// a JSON Schema using a caller-supplied meta-schema description.
//
// Usage:
//
//	formschemagen -meta meta.json -schema assessment.json [-out schema.json]
//
// Flags:
//
//	-meta string     Path to the meta-schema JSON document (required)
//	-schema string   Path to the external schema JSON document (required)
//	-out string      Output file (default: stdout)
//	-verbose         Verbose output
package main

import (
	"flag"
	"log"
	"os"

	json "github.com/goccy/go-json"

	schemaengine "github.com/speakcare/spkc-ehr-schema-sub001"
)

var (
	metaPath   = flag.String("meta", "", "Path to the meta-schema JSON document")
	schemaPath = flag.String("schema", "", "Path to the external schema JSON document")
	outPath    = flag.String("out", "", "Output file (default: stdout)")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	if *metaPath == "" || *schemaPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	meta, err := readMetaSchema(*metaPath)
	if err != nil {
		log.Fatalf("reading meta-schema: %v", err)
	}

	external, err := readExternalSchema(*schemaPath)
	if err != nil {
		log.Fatalf("reading external schema: %v", err)
	}

	if *verbose {
		log.Printf("loaded meta-schema %q", meta.SchemaName)
	}

	engine, err := schemaengine.NewEngine(*meta)
	if err != nil {
		log.Fatalf("constructing engine: %v", err)
	}

	tableID, err := engine.Register(external)
	if err != nil {
		log.Fatalf("registering table: %v", err)
	}

	jsonSchema, err := engine.GetJSONSchema(tableID)
	if err != nil {
		log.Fatalf("fetching generated schema: %v", err)
	}

	out, err := json.MarshalIndent(jsonSchema, "", "  ")
	if err != nil {
		log.Fatalf("marshaling generated schema: %v", err)
	}

	if *outPath == "" {
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		log.Fatalf("writing output file: %v", err)
	}
	if *verbose {
		log.Printf("wrote %s", *outPath)
	}
}

func readMetaSchema(path string) (*schemaengine.MetaSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta schemaengine.MetaSchema
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readExternalSchema(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var external map[string]any
	if err := json.Unmarshal(data, &external); err != nil {
		return nil, err
	}
	return external, nil
}
