package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/did-method-plc/go-diddoc"
	"github.com/did-method-plc/go-diddoc/server"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func parseDIDArg(cmd *cli.Command) (diddoc.Subject, error) {
	s := cmd.Args().First()
	if s == "" {
		return "", fmt.Errorf("need to provide DID as an argument")
	}
	// round-trip to make sure it's well-formed
	did, err := syntax.ParseDID(s)
	if err != nil {
		return "", err
	}
	return diddoc.ParseSubject(did.String())
}

func runPut(ctx context.Context, cmd *cli.Command) error {
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

	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.PutDoc(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", entry.Subject, entry.CID)
	return nil
}

func runGet(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	did, err := parseDIDArg(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.GetDoc(ctx, did)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("DID not registered: %s", did)
	}
	b, err := entry.Doc.Encode()
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	did, err := parseDIDArg(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.DeleteDoc(ctx, did)
}

func runList(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	subjects, err := store.ListSubjects(ctx, cmd.String("after"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	for _, s := range subjects {
		fmt.Println(s)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := configureLogger(cmd)
	httpAddr := cmd.String("bind")
	metricsAddr := cmd.String("metrics-addr")

	otelShutdown, err := setupOTel(ctx)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer otelShutdown(context.Background())

	store, err := openStore(cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.NewServer(store, httpAddr, logger)
	g := new(errgroup.Group)

	g.Go(srv.Run)

	g.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		slog.Info("metrics server listening", "addr", metricsAddr)
		return http.ListenAndServe(metricsAddr, mux)
	})

	return g.Wait()
}
