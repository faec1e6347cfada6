package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs.Logf("auth/static-token: stored=%q input=%q", tc.stored, tc.input)
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"missing":     {header: "", ok: false},
		"basic":       {header: "Basic abc", ok: false},
		"empty":       {header: "Bearer  ", ok: false},
		"bearer":      {header: "Bearer abc", want: "abc", ok: true},
		"lower case":  {header: "bearer abc", want: "abc", ok: true},
		"extra space": {header: "Bearer   abc ", want: "abc", ok: true},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(req)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: got (%q, %v)", name, got, ok)
		}
	}
}

func TestRequireGuardsRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Require(FuncValidator(func(token string) error {
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})))
	r.GET("/private", func(c *gin.Context) { c.String(http.StatusOK, "in") })

	for token, want := range map[string]int{"": http.StatusUnauthorized, "bad": http.StatusUnauthorized, "ok": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("token %q: expected %d, got %d", token, want, rec.Code)
		}
		if want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("token %q: expected challenge header", token)
		}
	}
}
