package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/did-method-plc/go-diddoc"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func readDocument(path string, dec diddoc.Decoder) (*diddoc.Document, error) {
	b, err := readInput(path)
	if err != nil {
		return nil, err
	}
	doc, err := dec.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// normalizeFiles parses and re-encodes each file concurrently. Output order matches input order.
func normalizeFiles(ctx context.Context, paths []string, dec diddoc.Decoder, indent bool) ([][]byte, error) {
	out := make([][]byte, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			doc, err := readDocument(p, dec)
			if err != nil {
				return err
			}
			b, err := doc.Encode()
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if indent {
				var buf bytes.Buffer
				if err := json.Indent(&buf, b, "", "  "); err != nil {
					return err
				}
				b = buf.Bytes()
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runNormalize(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("need to provide at least one file as an argument")
	}
	policy, err := keyPolicy(cmd)
	if err != nil {
		return err
	}

	docs, err := normalizeFiles(ctx, paths, diddoc.Decoder{KeyPolicy: policy}, cmd.Bool("indent"))
	if err != nil {
		return err
	}
	for _, b := range docs {
		fmt.Println(string(b))
	}
	logger.Debug("normalized documents", "count", len(docs))
	return nil
}

func entryLabel(e diddoc.KeySetEntry) string {
	if e.IsReference() {
		return "ref"
	}
	return "embedded"
}

// describeDocument prints a summary of doc to w, and logs anything a document author would likely want to fix.
func describeDocument(w io.Writer, doc *diddoc.Document, logger *slog.Logger) {
	fmt.Fprintf(w, "id: %s\n", doc.Subject())
	fmt.Fprintf(w, "context: %v\n", doc.Context().Sequence())
	if t, err := doc.CreatedAt(); err == nil {
		fmt.Fprintf(w, "created: %s\n", t.UTC().Format(syntax.AtprotoDatetimeLayout))
	}
	if t, err := doc.UpdatedAt(); err == nil {
		fmt.Fprintf(w, "updated: %s\n", t.UTC().Format(syntax.AtprotoDatetimeLayout))
	}

	fmt.Fprintf(w, "verificationMethod:\n")
	for _, vm := range doc.VerificationMethods() {
		fmt.Fprintf(w, "  %s type=%s encoding=%s\n", vm.Subject(), vm.Type(), vm.Encoding().Kind())
		if err := vm.CheckKind(); err != nil {
			logger.Warn("verification method type not recognized", "id", vm.Subject(), "type", vm.Type())
		}
	}
	for _, rel := range diddoc.AllRelationships {
		entries := doc.Relationship(rel)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", rel)
		for _, e := range entries {
			kind := e.Kind()
			if vm, ok := doc.ResolveEntry(e); ok {
				kind = vm.Kind()
			}
			fmt.Fprintf(w, "  %s (%s) kind=%s\n", e.Subject(), entryLabel(e), kind)
		}
	}
	for _, svc := range doc.Services() {
		fmt.Fprintf(w, "service: %s type=%s\n", svc.ID(), svc.Type())
	}
	if keys := doc.Extra().Keys(); len(keys) > 0 {
		fmt.Fprintf(w, "extension: %v\n", keys)
	}
	if c, err := doc.CID(); err == nil {
		fmt.Fprintf(w, "cid: %s\n", c)
	}

	for _, ref := range doc.DanglingReferences() {
		logger.Warn("reference does not match any verification method in the document", "ref", ref)
	}
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	p := cmd.Args().First()
	if p == "" {
		return fmt.Errorf("need to provide a file as an argument")
	}
	policy, err := keyPolicy(cmd)
	if err != nil {
		return err
	}
	doc, err := readDocument(p, diddoc.Decoder{KeyPolicy: policy})
	if err != nil {
		return err
	}
	describeDocument(os.Stdout, doc, logger)
	return nil
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	did, err := syntax.ParseDID(cmd.String("id"))
	if err != nil {
		return err
	}
	doc, err := diddoc.New(cmd.String("context"), did.String())
	if err != nil {
		return err
	}
	b, err := doc.Encode()
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
