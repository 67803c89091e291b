package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"docstore/config"
	"docstore/datastore"
	"docstore/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

// app is the composition root shared by the subcommands
type app struct {
	out      io.Writer
	prompter config.Prompter
	opts     []datastore.Option

	registry *datastore.Registry
	client   *datastore.Client
	cfg      config.Config
}

func newRootCmd(out io.Writer, opts ...datastore.Option) *cobra.Command {
	a := &app{out: out, opts: opts, prompter: config.NewTerminalPrompter()}
	root := &cobra.Command{
		Use:               "docstore",
		Short:             "Create, read, update and delete documents of a MongoDB collection",
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}
	config.AddFlags(root.PersistentFlags())
	root.AddCommand(
		&cobra.Command{
			Use:   "create <document>",
			Short: "Insert one document",
			Args:  cobra.ExactArgs(1),
			RunE:  a.run(a.create),
		},
		&cobra.Command{
			Use:   "read [query]",
			Short: "Print the documents matching query, all of them if omitted",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.run(a.read),
		},
		&cobra.Command{
			Use:   "update <query> <values>",
			Short: "Set the fields of values on every matching document",
			Args:  cobra.ExactArgs(2),
			RunE:  a.run(a.update),
		},
		&cobra.Command{
			Use:   "delete <query>",
			Short: "Remove every matching document, query must not be empty",
			Args:  cobra.ExactArgs(1),
			RunE:  a.run(a.delete),
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Check the server is reachable",
			Args:  cobra.NoArgs,
			RunE:  a.run(a.ping),
		},
	)
	return root
}

// open resolves the configuration and credentials, then opens the client
func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if a.cfg, err = config.ResolveCredentials(cfg, os.LookupEnv, a.prompter); err != nil {
		return err
	}
	log.Logger().Debugw("resolved configuration", "config", a.cfg.String())
	a.registry = datastore.NewRegistry(a.opts...)
	a.client = a.registry.Get(cmd.Context(), a.cfg)
	return nil
}

// run releases every connection once fn returns, whatever its outcome
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.registry.Close(cmd.Context()); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) create(cmd *cobra.Command, args []string) error {
	doc, err := parseMapping(args[0])
	if err != nil {
		return err
	}
	created, err := a.client.Create(cmd.Context(), a.cfg.Collection, doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, created)
	return nil
}

func (a *app) read(cmd *cobra.Command, args []string) error {
	var query interface{}
	if len(args) == 1 {
		q, err := parseMapping(args[0])
		if err != nil {
			return err
		}
		query = q
	}
	docs, err := a.client.Read(cmd.Context(), a.cfg.Collection, query)
	if err != nil {
		return err
	}
	return printJSON(a.out, docs)
}

func (a *app) update(cmd *cobra.Command, args []string) error {
	query, err := parseMapping(args[0])
	if err != nil {
		return err
	}
	values, err := parseMapping(args[1])
	if err != nil {
		return err
	}
	modified, err := a.client.Update(cmd.Context(), a.cfg.Collection, query, values)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, modified)
	return nil
}

func (a *app) delete(cmd *cobra.Command, args []string) error {
	query, err := parseMapping(args[0])
	if err != nil {
		return err
	}
	deleted, err := a.client.Delete(cmd.Context(), a.cfg.Collection, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, deleted)
	return nil
}

func (a *app) ping(cmd *cobra.Command, args []string) error {
	if err := a.client.Ping(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

// parseMapping reads a MongoDB extended JSON object, so {"_id": {"$oid": "..."}}
// and {"born": {"$date": "..."}} keep their types
func parseMapping(arg string) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(arg), false, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %q", arg)
	}
	if doc == nil {
		doc = bson.D{}
	}
	return doc, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
