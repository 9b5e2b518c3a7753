// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var contractYAML []byte

var loadContract = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid api contract: %w", err)
	}
	return doc, nil
})

// Contract returns the OpenAPI document of /api/v1.
func Contract() (*openapi3.T, error) { return loadContract() }

// contractValidator rejects /api/v1 requests the contract does not admit
// before they reach the engine. Requests the contract has no route for pass
// through, so the router answers 404 or 405 itself.
type contractValidator struct {
	router  routers.Router
	maxBody int64
	opts    *openapi3filter.Options
}

func newContractValidator(doc *openapi3.T, maxBody int64) (*contractValidator, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("api contract router: %w", err)
	}
	return &contractValidator{
		router:  router,
		maxBody: maxBody,
		opts:    &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc},
	}, nil
}

func (v *contractValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, v.maxBody)
		}
		in := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    v.opts,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), in); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", errBadRequest, contractReason(err)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// contractReason condenses a validation error to its reason and location,
// leaving out the schema dump.
func contractReason(err error) string {
	var se *openapi3.SchemaError
	if !errors.As(err, &se) {
		return err.Error()
	}
	msg := se.Reason
	if p := se.JSONPointer(); len(p) > 0 {
		msg = strings.Join(p, "/") + ": " + msg
	}
	var re *openapi3filter.RequestError
	if errors.As(err, &re) && re.Parameter != nil {
		msg = "parameter " + re.Parameter.Name + ": " + msg
	}
	return msg
}

func (s *Server) handleContract(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(contractYAML)
}
