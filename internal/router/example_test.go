package router_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/password"
	"github.com/patric-chuzhbe/tinyapp/internal/router"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

func setupExampleServer() *httptest.Server {
	cfg, err := config.New(config.WithDisableFlagsParsing(true))
	if err != nil {
		panic(err)
	}

	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	keys := [][]byte{[]byte("example-signing-key")}

	theAuth, err := auth.New(db, cfg.SessionCookieName, keys, cfg.SessionTTL, false)
	if err != nil {
		panic(err)
	}

	pages, err := views.New()
	if err != nil {
		panic(err)
	}

	guard, err := ipchecker.New(cfg.TrustedSubnet)
	if err != nil {
		panic(err)
	}

	svc := service.New(db, password.New(bcrypt.MinCost), cfg.ShortURLBase)

	return httptest.NewServer(router.New(svc, theAuth, pages, guard))
}

// newExampleClient keeps cookies between requests and never follows redirects.
func newExampleClient() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(client *http.Client, target string, form url.Values) *http.Response {
	resp, err := client.PostForm(target, form)
	if err != nil {
		panic(err)
	}
	resp.Body.Close()

	return resp
}

func ExampleRouter_GetPing() {
	server := setupExampleServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_PostRegister() {
	server := setupExampleServer()
	defer server.Close()

	client := newExampleClient()

	resp := postForm(client, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret"},
	})

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Location:", resp.Header.Get("Location"))

	resp = postForm(client, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"another"},
	})

	fmt.Println("Second Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 302
	// Location: /urls
	// Second Status Code: 400
}

func ExampleRouter_PostUrls() {
	server := setupExampleServer()
	defer server.Close()

	client := newExampleClient()
	postForm(client, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret"},
	})

	resp := postForm(client, server.URL+"/urls", url.Values{"longURL": {"https://example.com"}})

	re := regexp.MustCompile(`^/urls/[a-zA-Z0-9]{6}$`)

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("re.MatchString(Location):", re.MatchString(resp.Header.Get("Location")))

	// Output:
	// Status Code: 302
	// re.MatchString(Location): true
}

func ExampleRouter_GetUid() {
	server := setupExampleServer()
	defer server.Close()

	client := newExampleClient()
	postForm(client, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret"},
	})
	created := postForm(client, server.URL+"/urls", url.Values{"longURL": {"http://example.org"}})
	shortID := strings.TrimPrefix(created.Header.Get("Location"), "/urls/")

	anonymous := newExampleClient()
	resp, err := anonymous.Get(server.URL + "/u/" + shortID)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Location:", resp.Header.Get("Location"))

	// Output:
	// Status Code: 302
	// Location: http://example.org
}

func ExampleRouter_PostUrlsiddelete() {
	server := setupExampleServer()
	defer server.Close()

	owner := newExampleClient()
	postForm(owner, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret"},
	})
	created := postForm(owner, server.URL+"/urls", url.Values{"longURL": {"https://example.com"}})
	location := created.Header.Get("Location")

	stranger := newExampleClient()
	postForm(stranger, server.URL+"/register", url.Values{
		"email":    {"bob@example.com"},
		"password": {"secret"},
	})

	fmt.Println("Stranger:", postForm(stranger, server.URL+location+"/delete", nil).StatusCode)
	fmt.Println("Owner:", postForm(owner, server.URL+location+"/delete", nil).StatusCode)
	fmt.Println("Again:", postForm(owner, server.URL+location+"/delete", nil).StatusCode)

	// Output:
	// Stranger: 403
	// Owner: 302
	// Again: 404
}

func ExampleRouter_GetUrlsjson() {
	server := setupExampleServer()
	defer server.Close()

	client := newExampleClient()
	postForm(client, server.URL+"/register", url.Values{
		"email":    {"alice@example.com"},
		"password": {"secret"},
	})
	postForm(client, server.URL+"/urls", url.Values{"longURL": {"https://example.com"}})

	resp, err := http.Get(server.URL + "/urls.json")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var dump map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&dump); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Records:", len(dump))

	// Output:
	// Status Code: 200
	// Records: 1
}
