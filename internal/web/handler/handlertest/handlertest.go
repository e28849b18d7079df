// Package handlertest runs handlers against an in-memory RBAC service.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac/rbactest"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
	authmiddleware "github.com/kha997/zenamanagephp-sub030/internal/web/middleware/auth"
)

// Admin holds every guard permission in Tenant and globally.
const (
	Admin  uint64 = 1
	Tenant uint64 = 7
)

// Env is a test app with its backing service.
type Env struct {
	App      *fiber.App
	Service  *rbac.Service
	Recorder *events.Recorder
	Config   *config.Config
}

// New builds an app mounting h below the API root. Admin is granted every guard permission.
func New(t *testing.T, h handler.Service, opts ...rbac.Option) *Env {
	t.Helper()

	svc, _, rec := rbactest.NewService(t, opts...)
	rbactest.Permissions(t, svc, auth.All()...)
	rbactest.Grant(t, svc, Admin, 0, auth.All()...)

	cfg := &config.Config{}
	cfg.Webserver.HierarchyCacheTTL = 60
	cfg.RBAC.MaxImportBytes = config.DefaultMaxImportBytes

	app := fiber.New(fiber.Config{CaseSensitive: true, Immutable: true})
	api := app.Group(handler.APIPath, authmiddleware.Middleware)
	h.Init(api, cfg, svc)

	rec.Reset()

	return &Env{App: app, Service: svc, Recorder: rec, Config: cfg}
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	// User defaults to Admin. Anonymous sends no identity at all.
	User      uint64
	Anonymous bool
	Tenant    uint64
	JSON      any
	Body      io.Reader
	Header    map[string]string
}

// Response is a decoded reply.
type Response struct {
	Status int
	Header http.Header
	Raw    []byte
	Body   map[string]any
}

// Do sends r below the API root.
func (e *Env) Do(t *testing.T, r Request) Response {
	t.Helper()

	body := r.Body

	if r.JSON != nil {
		raw, err := json.Marshal(r.JSON)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.Method, handler.APIPath+r.Path, body)

	if r.JSON != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	if !r.Anonymous {
		user := r.User
		if user == 0 {
			user = Admin
		}

		req.Header.Set(authmiddleware.HeaderUserID, strconv.FormatUint(user, 10))
	}

	if r.Tenant != 0 {
		req.Header.Set(authmiddleware.HeaderTenantID, strconv.FormatUint(r.Tenant, 10))
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := Response{Status: resp.StatusCode, Header: resp.Header, Raw: raw}

	if json.Valid(raw) {
		_ = json.Unmarshal(raw, &out.Body)
	}

	return out
}
