package views

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPages(t *testing.T) {
	renderer, err := New()
	require.NoError(t, err)

	loggedIn := Page{Header: Header{UserEmail: "alice@example.com"}}

	tests := []struct {
		name     string
		page     string
		data     interface{}
		contains []string
		excludes []string
	}{
		{
			name: "index with urls",
			page: PageURLsIndex,
			data: URLsIndexPage{
				Page: loggedIn,
				URLs: []URLRow{{ShortID: "b2xVn2", LongURL: "http://www.lighthouselabs.ca", ShortURL: "http://localhost:8080/u/b2xVn2"}},
			},
			contains: []string{"alice@example.com", "b2xVn2", "http://www.lighthouselabs.ca", `/urls/b2xVn2/delete`, "Logout"},
		},
		{
			name:     "empty index",
			page:     PageURLsIndex,
			data:     URLsIndexPage{Page: loggedIn},
			contains: []string{"You have no URLs yet"},
		},
		{
			name:     "new with error",
			page:     PageURLsNew,
			data:     URLsNewPage{Page: Page{Header: loggedIn.Header, Error: "bad url"}, LongURL: "nope"},
			contains: []string{"bad url", `value="nope"`, `action="/urls"`},
		},
		{
			name: "show",
			page: PageURLsShow,
			data: URLsShowPage{
				Page:      loggedIn,
				ShortID:   "9sm5xK",
				LongURL:   "http://www.google.com",
				ShortURL:  "http://localhost:8080/u/9sm5xK",
				CreatedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
			},
			contains: []string{`action="/urls/9sm5xK"`, "http://www.google.com", "2024-01-02 03:04"},
		},
		{
			name:     "anonymous login",
			page:     PageLogin,
			data:     CredentialsPage{Email: "bob@example.com"},
			contains: []string{`action="/login"`, `value="bob@example.com"`, `href="/register"`},
			excludes: []string{"Logout"},
		},
		{
			name:     "register escapes input",
			page:     PageRegister,
			data:     CredentialsPage{Email: `"><script>`},
			contains: []string{`action="/register"`, "&#34;&gt;&lt;script&gt;"},
			excludes: []string{"<script>"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			require.NoError(t, renderer.Render(recorder, http.StatusOK, test.page, test.data))

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, "text/html; charset=utf-8", recorder.Header().Get("Content-Type"))
			for _, fragment := range test.contains {
				assert.Contains(t, recorder.Body.String(), fragment)
			}
			for _, fragment := range test.excludes {
				assert.NotContains(t, recorder.Body.String(), fragment)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	renderer, err := New()
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	assert.Error(t, renderer.Render(recorder, http.StatusOK, "missing", nil))

	recorder = httptest.NewRecorder()
	assert.Error(t, renderer.Render(recorder, http.StatusOK, PageURLsIndex, struct{}{}))
	assert.Empty(t, recorder.Body.String())
}
