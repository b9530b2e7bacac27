// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/stacklok/toolhive-oauth1/httperr"
	"github.com/stacklok/toolhive-oauth1/internal/fsm"
	"github.com/stacklok/toolhive-oauth1/linkfilter"
	"github.com/stacklok/toolhive-oauth1/notify"
	"github.com/stacklok/toolhive-oauth1/transport"
	"github.com/stacklok/toolhive-oauth1/validation/relation"
)

const (
	subjectAccept  = "text/html, application/xhtml+xml, application/xrd+xml;q=0.9, */*;q=0.5"
	hostMetaAccept = MediaTypeXRD + ", " + MediaTypeJRD + ";q=0.9"
)

// Result is a located resource.
type Result struct {
	MimeType    string
	SourceURL   *url.URL
	ResourceURL *url.URL
}

// Clone returns a copy whose URLs do not alias the receiver's.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		MimeType:    r.MimeType,
		SourceURL:   cloneURL(r.SourceURL),
		ResourceURL: cloneURL(r.ResourceURL),
	}
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

// Resolver runs one discovery search at a time.
type Resolver struct {
	transport    transport.Transport
	parser       Parser
	delegate     *notify.Notifier[Delegate]
	runner       *fsm.Runner
	logger       *slog.Logger
	relations    map[string]string
	filter       *linkfilter.Filter
	hostMetaPath string

	mu        sync.Mutex
	state     State
	gen       uint64
	discarded bool
	result    *Result
	err       error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithParser replaces DefaultParser.
func WithParser(p Parser) Option {
	return func(r *Resolver) {
		r.parser = p
	}
}

// WithRelation sets the link relation searched for mimeType.
func WithRelation(mimeType, rel string) Option {
	return func(r *Resolver) {
		r.relations[strings.ToLower(baseMediaType(mimeType))] = rel
	}
}

// WithLinkFilter adds a filter every candidate link must pass.
func WithLinkFilter(f *linkfilter.Filter) Option {
	return func(r *Resolver) {
		r.filter = f
	}
}

// WithHostMetaPath overrides HostMetaPath.
func WithHostMetaPath(path string) Option {
	return func(r *Resolver) {
		r.hostMetaPath = path
	}
}

// NewResolver returns a Resolver in Idle.
func NewResolver(t transport.Transport, delegate Delegate, opts ...Option) (*Resolver, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if delegate == nil {
		return nil, fmt.Errorf("delegate is required")
	}
	r := &Resolver{
		transport:    t,
		parser:       DefaultParser{},
		logger:       slog.Default(),
		relations:    map[string]string{},
		hostMetaPath: HostMetaPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	for mimeType, rel := range r.relations {
		if err := relation.ValidateName(rel); err != nil {
			return nil, fmt.Errorf("relation for %s: %w", mimeType, err)
		}
	}
	r.logger = r.logger.With("component", "discovery")
	r.delegate = notify.New(delegate, r.logger)
	r.runner = fsm.NewRunner(context.Background())
	return r, nil
}

// LocateResource starts a search for the endpoint serving mimeType for
// sourceURL. It returns an error only when the call is rejected: while a
// search is running, for a subject that is not an absolute http(s) URL, or
// after Discard. Everything else is reported to the delegate.
func (r *Resolver) LocateResource(mimeType string, sourceURL *url.URL) error {
	if sourceURL == nil || !sourceURL.IsAbs() || sourceURL.Host == "" ||
		(sourceURL.Scheme != "http" && sourceURL.Scheme != "https") {
		subject := ""
		if sourceURL != nil {
			subject = sourceURL.String()
		}
		return &Error{Kind: KindInvalidSubject, URL: subject}
	}
	subject := *sourceURL

	r.mu.Lock()
	if r.discarded {
		r.mu.Unlock()
		return ErrDiscarded
	}
	from := r.state
	if from.InFlight() {
		r.mu.Unlock()
		return &Error{Kind: KindAlreadyInProgress, URL: subject.String()}
	}
	gen, ok := r.runner.Start(func(ctx context.Context, gen uint64) {
		r.search(ctx, gen, mimeType, &subject)
	})
	if !ok {
		r.mu.Unlock()
		return ErrDiscarded
	}
	r.gen = gen
	r.result, r.err = nil, nil
	r.moveLocked(RequestingURI)
	r.mu.Unlock()

	r.logger.Debug("locating resource", "mime_type", mimeType, "subject", subject.String())
	r.notifyState(from, RequestingURI)
	return nil
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the result of the last search, or nil.
func (r *Resolver) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result.Clone()
}

// Err returns the error of the last failed search.
func (r *Resolver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the running search has finished.
func (r *Resolver) Wait() {
	r.runner.Wait()
}

// Discard cancels the running search and detaches the delegate.
func (r *Resolver) Discard() {
	r.mu.Lock()
	r.discarded = true
	r.gen = 0
	r.mu.Unlock()

	r.runner.Close()
	r.delegate.Detach()
}

func (r *Resolver) relation(mimeType string) string {
	if rel, ok := r.relations[strings.ToLower(baseMediaType(mimeType))]; ok {
		return rel
	}
	return DefaultRelation
}

func (r *Resolver) search(ctx context.Context, gen uint64, mimeType string, subject *url.URL) {
	rel := r.relation(mimeType)

	resp, err := r.fetch(ctx, subject, subjectAccept)
	if !r.current(gen) {
		return
	}
	if err == nil {
		err = httperr.FromStatus(resp.StatusCode)
	}
	if err != nil {
		r.logger.Debug("subject fetch failed, trying host-meta", "subject", subject.String(), "error", err)
	} else {
		base := subject
		if resp.URL != nil {
			base = resp.URL
		}

		if !r.advance(gen, SearchingLinkElements) {
			return
		}
		links, perr := r.parser.LinkElements(resp.Body, base)
		if perr != nil {
			r.logger.Debug("ignoring unparsable subject document", "error", perr)
		}
		if target := r.pick(links, rel, mimeType, subject); target != nil {
			r.locate(gen, mimeType, subject, target)
			return
		}

		if !r.advance(gen, SearchingLinkHeaders) {
			return
		}
		links, perr = r.parser.LinkHeaders(resp.Header, base)
		if perr != nil {
			r.logger.Debug("ignoring malformed Link header", "error", perr)
		}
		if target := r.pick(links, rel, mimeType, subject); target != nil {
			r.locate(gen, mimeType, subject, target)
			return
		}
	}

	if !r.advance(gen, RequestingHostMeta) {
		return
	}
	hostMeta := &url.URL{Scheme: subject.Scheme, Host: subject.Host, Path: r.hostMetaPath}
	resp, err = r.fetch(ctx, hostMeta, hostMetaAccept)
	if !r.current(gen) {
		return
	}
	if err != nil {
		r.fail(gen, &Error{Kind: KindTransport, URL: hostMeta.String(), Err: err})
		return
	}
	if err := httperr.FromStatus(resp.StatusCode); err != nil {
		r.fail(gen, &Error{Kind: KindNotFound, URL: hostMeta.String(), Err: err})
		return
	}

	if !r.advance(gen, SearchingHostMeta) {
		return
	}
	base := hostMeta
	if resp.URL != nil {
		base = resp.URL
	}
	links, err := r.parser.HostMeta(resp.Header.Get("Content-Type"), resp.Body, base)
	if err != nil {
		r.fail(gen, &Error{Kind: KindMalformedDocument, URL: hostMeta.String(), Err: err})
		return
	}
	if target := r.pick(links, rel, mimeType, subject); target != nil {
		r.locate(gen, mimeType, subject, target)
		return
	}
	r.fail(gen, &Error{Kind: KindNotFound, URL: subject.String()})
}

func (r *Resolver) fetch(ctx context.Context, u *url.URL, accept string) (*transport.Response, error) {
	header := http.Header{}
	header.Set("Accept", accept)
	resp, err := r.transport.Do(ctx, &transport.Request{Method: http.MethodGet, URL: u, Header: header})
	if err == nil && resp.Header == nil {
		resp.Header = http.Header{}
	}
	return resp, err
}

// pick returns the target of the first link accepted for mimeType.
func (r *Resolver) pick(links []Link, rel, mimeType string, subject *url.URL) *url.URL {
	for _, l := range links {
		if !l.HasRel(rel) || !l.MatchesType(mimeType) {
			continue
		}
		target, err := l.Target(subject)
		if err != nil {
			r.logger.Debug("skipping link with unusable target", "href", l.Href, "template", l.Template, "error", err)
			continue
		}
		if r.filter != nil {
			ok, err := r.filter.Accept(linkfilter.Candidate{
				Rel:      l.Rel,
				Type:     l.Type,
				Href:     target.String(),
				MimeType: mimeType,
				Source:   subject.String(),
			})
			if err != nil {
				r.logger.Warn("link filter failed", "filter", r.filter.Source(), "error", err)
				continue
			}
			if !ok {
				continue
			}
		}
		return target
	}
	return nil
}

func (r *Resolver) locate(gen uint64, mimeType string, subject, target *url.URL) {
	r.mu.Lock()
	if gen != r.gen || r.discarded {
		r.mu.Unlock()
		return
	}
	from, ok := r.moveLocked(ResourceLocated)
	if !ok {
		r.mu.Unlock()
		return
	}
	result := &Result{MimeType: mimeType, SourceURL: cloneURL(subject), ResourceURL: cloneURL(target)}
	r.result = result
	r.mu.Unlock()

	r.logger.Info("resource located", "mime_type", mimeType, "subject", subject.String(), "resource", target.String())
	r.notifyState(from, ResourceLocated)
	r.delegate.Notify("located", func(d Delegate) {
		delivered := result.Clone()
		d.LocatedResource(mimeType, delivered.SourceURL, delivered.ResourceURL)
	})
}

func (r *Resolver) fail(gen uint64, err *Error) {
	r.mu.Lock()
	if gen != r.gen || r.discarded {
		r.mu.Unlock()
		return
	}
	from, ok := r.moveLocked(LookupFailed)
	if !ok {
		r.mu.Unlock()
		return
	}
	r.err = err
	r.mu.Unlock()

	r.logger.Warn("lookup failed", "error", err)
	r.notifyState(from, LookupFailed)
	r.delegate.Notify("failed", func(d Delegate) {
		if o, ok := notify.As[FailureObserver](d); ok {
			o.LookupDidFail(err)
		}
	})
}

// advance moves to the next step of generation gen.
func (r *Resolver) advance(gen uint64, to State) bool {
	r.mu.Lock()
	if gen != r.gen || r.discarded {
		r.mu.Unlock()
		return false
	}
	from, ok := r.moveLocked(to)
	r.mu.Unlock()
	if ok {
		r.notifyState(from, to)
	}
	return ok
}

// moveLocked applies a transition from the table. r.mu must be held.
func (r *Resolver) moveLocked(to State) (State, bool) {
	from := r.state
	if err := transitions.Check(from, to); err != nil {
		r.logger.Error("rejected transition", "error", err)
		return from, false
	}
	r.state = to
	return from, true
}

func (r *Resolver) current(gen uint64) bool {
	return r.runner.Current(gen)
}

func (r *Resolver) notifyState(from, to State) {
	r.logger.Debug("state changed", "from", from.String(), "to", to.String())
	r.delegate.Notify("state_changed", func(d Delegate) {
		if o, ok := notify.As[StateObserver](d); ok {
			o.DiscoveryStateDidChange(from, to)
		}
	})
}
