package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/gmail"
	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/memory"
)

// Options configures a ServerContext.
type Options struct {
	// Store is the label memory backing classification and feedback.
	Store *memory.Store

	// Resolver produces label suggestions for messages.
	Resolver *classifier.Resolver

	// Metrics records classification and tool metrics. May be nil.
	Metrics *instrumentation.Metrics

	// Audit logs tool invocations and label decisions. May be nil.
	Audit *instrumentation.AuditLogger

	// ApplyLabels enables write operations against Gmail (creating and
	// applying labels). When false, tools only suggest.
	ApplyLabels bool
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	gmailClients map[string]*gmail.Client // Maps account name to Gmail client
	store        *memory.Store
	resolver     *classifier.Resolver
	metrics      *instrumentation.Metrics
	audit        *instrumentation.AuditLogger
	applyLabels  bool
	mu           sync.RWMutex
	shutdown     bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	// Initialize client map
	gmailClients := make(map[string]*gmail.Client)

	// Try to create default Gmail client, but don't fail if token is missing
	// Clients will be lazily initialized when first needed
	if gmail.HasToken() {
		gmailClient, err := gmail.NewClient(shutdownCtx)
		if err != nil {
			// Log but don't fail - will be re-attempted on first use
			slog.Warn("failed to create Gmail client for default account", "error", err)
		} else {
			gmailClients["default"] = gmailClient
		}
	}

	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		gmailClients: gmailClients,
		store:        opts.Store,
		resolver:     opts.Resolver,
		metrics:      opts.Metrics,
		audit:        opts.Audit,
		applyLabels:  opts.ApplyLabels,
		shutdown:     false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GmailClientForAccount returns the Gmail client for a specific account
// Creates and caches the client if it doesn't exist yet
// Returns nil if the account has no token
func (sc *ServerContext) GmailClientForAccount(account string) *gmail.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Check if client already exists
	if client, ok := sc.gmailClients[account]; ok {
		return client
	}

	// Try to create client if token exists
	if !gmail.HasTokenForAccount(account) {
		return nil
	}

	client, err := gmail.NewClientForAccount(sc.ctx, account)
	if err != nil {
		slog.Warn("failed to create Gmail client", "account", account, "error", err)
		return nil
	}

	sc.gmailClients[account] = client
	return client
}

// GmailClient returns the Gmail client for the default account
func (sc *ServerContext) GmailClient() *gmail.Client {
	return sc.GmailClientForAccount("default")
}

// SetGmailClientForAccount sets the Gmail client for a specific account
func (sc *ServerContext) SetGmailClientForAccount(account string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[account] = client
}

// SetGmailClient sets the Gmail client for the default account
func (sc *ServerContext) SetGmailClient(client *gmail.Client) {
	sc.SetGmailClientForAccount("default", client)
}

// Accounts returns the names of accounts with an initialized Gmail client,
// sorted alphabetically
func (sc *ServerContext) Accounts() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	accounts := make([]string, 0, len(sc.gmailClients))
	for name := range sc.gmailClients {
		accounts = append(accounts, name)
	}
	sort.Strings(accounts)
	return accounts
}

// Store returns the label memory store
func (sc *ServerContext) Store() *memory.Store {
	return sc.store
}

// Resolver returns the classification resolver
func (sc *ServerContext) Resolver() *classifier.Resolver {
	return sc.resolver
}

// Metrics returns the metrics recorder. May be nil when instrumentation
// is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// SetAudit sets the audit logger
func (sc *ServerContext) SetAudit(audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = audit
}

// Audit returns the audit logger. May be nil.
func (sc *ServerContext) Audit() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// ApplyLabels returns whether write operations against Gmail are enabled
func (sc *ServerContext) ApplyLabels() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.applyLabels
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
