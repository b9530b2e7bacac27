// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-oauth1/discovery"
	"github.com/stacklok/toolhive-oauth1/linkfilter"
	"github.com/stacklok/toolhive-oauth1/transport"
)

type discoverOptions struct {
	mimeType    string
	rel         string
	filter      string
	concurrency int
	timeout     time.Duration
}

type discoverResult struct {
	subject  string
	resource *url.URL
	err      error
}

func newDiscoverCmd(g *globalOptions) *cobra.Command {
	o := &discoverOptions{}
	cmd := &cobra.Command{
		Use:   "discover --type MIME URL...",
		Short: "Locate a resource of a given media type for each subject URL",
		Long: `discover looks for a link to a resource of the requested media type
in each subject's HTML link elements, its Link response headers and finally
the host's /.well-known/host-meta document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.logger(nil)
			if err != nil {
				return err
			}
			t := g.transport(logger)
			results, err := runDiscover(cmd.Context(), t, logger, o, args)
			if results == nil {
				return err
			}
			renderDiscover(cmd.OutOrStdout(), results)
			return err
		},
	}

	cmd.Flags().StringVar(&o.mimeType, "type", "", "media type of the resource to locate")
	cmd.Flags().StringVar(&o.rel, "rel", "", "link relation to match (default lrdd)")
	cmd.Flags().StringVar(&o.filter, "filter", "", "CEL expression over rel, link_type, href, mime_type and source")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 4, "maximum number of subjects resolved at once")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "per-subject timeout")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runDiscover(
	ctx context.Context,
	t transport.Transport,
	logger *slog.Logger,
	o *discoverOptions,
	subjects []string,
) ([]discoverResult, error) {
	var resolverOpts []discovery.Option
	resolverOpts = append(resolverOpts, discovery.WithLogger(logger))
	if o.rel != "" {
		resolverOpts = append(resolverOpts, discovery.WithRelation(o.mimeType, o.rel))
	}
	if o.filter != "" {
		f, err := linkfilter.New(o.filter)
		if err != nil {
			return nil, err
		}
		resolverOpts = append(resolverOpts, discovery.WithLinkFilter(f))
	}

	results := make([]discoverResult, len(subjects))
	g, ctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, subject := range subjects {
		g.Go(func() error {
			results[i] = resolveOne(ctx, t, o, subject, resolverOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.err == nil {
			return results, nil
		}
	}
	return results, fmt.Errorf("no resource located: %w", errors.Join(collectErrors(results)...))
}

func collectErrors(results []discoverResult) []error {
	errs := make([]error, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errs
}

func resolveOne(
	ctx context.Context,
	t transport.Transport,
	o *discoverOptions,
	subject string,
	opts []discovery.Option,
) discoverResult {
	res := discoverResult{subject: subject}

	u, err := url.Parse(subject)
	if err != nil {
		res.err = &discovery.Error{Kind: discovery.KindInvalidSubject, URL: subject, Err: err}
		return res
	}

	r, err := discovery.NewResolver(t, discovery.DelegateFunc(func(string, *url.URL, *url.URL) {}), opts...)
	if err != nil {
		res.err = err
		return res
	}
	defer r.Discard()

	if err := r.LocateResource(o.mimeType, u); err != nil {
		res.err = err
		return res
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	select {
	case <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
		return res
	}

	if located := r.Result(); located != nil {
		res.resource = located.ResourceURL
		return res
	}
	res.err = r.Err()
	return res
}

func renderDiscover(w io.Writer, results []discoverResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SUBJECT"),
		text.FgHiCyan.Sprint("RESOURCE"),
	})
	for _, r := range results {
		resource := ""
		if r.resource != nil {
			resource = r.resource.String()
		} else if r.err != nil {
			resource = text.FgRed.Sprint(r.err.Error())
		}
		t.AppendRow(table.Row{r.subject, resource})
	}
	t.Render()
}
