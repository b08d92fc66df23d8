// Package router defines the HTTP interface of the URL shortener: the HTML
// pages for registration, login and URL management, the public redirect and
// the JSON endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

type service interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	GetUser(ctx context.Context, userID string) (*user.User, error)
	CreateURL(ctx context.Context, userID, longURL string) (string, error)
	GetURL(ctx context.Context, userID, shortID string) (*models.URLRecord, error)
	UpdateURL(ctx context.Context, userID, shortID, longURL string) error
	DeleteURL(ctx context.Context, userID, shortID string) error
	ListURLs(ctx context.Context, userID string) ([]models.URLRecord, error)
	ResolveURL(ctx context.Context, shortID string) (string, error)
	DumpURLs(ctx context.Context) (models.URLsDump, error)
	Ping(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	GetShortURL(shortID string) string
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	LogIn(response http.ResponseWriter, userID string) error
	LogOut(response http.ResponseWriter)
}

type renderer interface {
	Render(response http.ResponseWriter, status int, name string, data interface{}) error
}

type trustedNetworkGuard interface {
	TrustedOnly(h http.Handler) http.Handler
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	service service
	auth    authenticator
	views   renderer
}

// New builds the chi router with every route of the service.
func New(
	svc service,
	theAuth authenticator,
	pages renderer,
	guard trustedNetworkGuard,
) *chi.Mux {
	myRouter := &Router{
		service: svc,
		auth:    theAuth,
		views:   pages,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Get(`/ping`, myRouter.GetPing)
	router.Get(`/urls.json`, myRouter.GetUrlsjson)
	router.Get(`/u/{id}`, myRouter.GetUid)
	router.With(guard.TrustedOnly).Get(`/api/internal/stats`, myRouter.GetApiinternalstats)

	router.Group(func(r chi.Router) {
		r.Use(theAuth.AuthenticateUser)

		r.Get(`/`, myRouter.GetRoot)
		r.Get(`/register`, myRouter.GetRegister)
		r.Post(`/register`, myRouter.PostRegister)
		r.Get(`/login`, myRouter.GetLogin)
		r.Post(`/login`, myRouter.PostLogin)
		r.Post(`/logout`, myRouter.PostLogout)
		r.Get(`/urls`, myRouter.GetUrls)
		r.Post(`/urls`, myRouter.PostUrls)
		r.Get(`/urls/new`, myRouter.GetUrlsnew)
		r.Get(`/urls/{id}`, myRouter.GetUrlsid)
		r.Post(`/urls/{id}`, myRouter.PostUrlsid)
		r.Post(`/urls/{id}/delete`, myRouter.PostUrlsiddelete)
	})

	return router
}

// statusFor maps the domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyCredentials),
		errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmailNotFound),
		errors.Is(err, models.ErrWrongPassword),
		errors.Is(err, models.ErrMustBeLoggedIn),
		errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (router *Router) fail(response http.ResponseWriter, where string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorln("Error calling the `"+where+"`: ", zap.Error(err))
		http.Error(response, http.StatusText(status), status)
		return
	}
	http.Error(response, err.Error(), status)
}

func (router *Router) render(response http.ResponseWriter, name string, data interface{}) {
	if err := router.views.Render(response, http.StatusOK, name, data); err != nil {
		logger.Log.Errorln("Error calling the `router.views.Render()`: ", zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// header resolves the email shown in the page header. A failure to load the
// user only costs the email.
func (router *Router) header(request *http.Request) views.Header {
	userID := auth.UserIDFromContext(request.Context())
	if userID == "" {
		return views.Header{}
	}
	usr, err := router.service.GetUser(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.service.GetUser()`: ", zap.Error(err))
		return views.Header{}
	}
	return views.Header{UserEmail: usr.Email}
}

func isLoggedIn(request *http.Request) bool {
	return auth.UserIDFromContext(request.Context()) != ""
}

// GetRoot sends visitors to their URLs or to the login page.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if isLoggedIn(request) {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/login", http.StatusFound)
}

func (router *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	if isLoggedIn(request) {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	router.render(response, views.PageRegister, views.CredentialsPage{})
}

// PostRegister creates the account and logs the new user in.
func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	form, err := parseCredentials(request)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	usr, err := router.service.Register(request.Context(), form.Email, form.Password)
	if err != nil {
		router.fail(response, "router.service.Register()", err)
		return
	}

	router.logInAndRedirect(response, request, usr.ID)
}

func (router *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	if isLoggedIn(request) {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	router.render(response, views.PageLogin, views.CredentialsPage{})
}

// PostLogin checks the credentials and starts a session.
func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form, err := parseCredentials(request)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	usr, err := router.service.Authenticate(request.Context(), form.Email, form.Password)
	if err != nil {
		router.fail(response, "router.service.Authenticate()", err)
		return
	}

	router.logInAndRedirect(response, request, usr.ID)
}

func (router *Router) logInAndRedirect(response http.ResponseWriter, request *http.Request, userID string) {
	if err := router.auth.LogIn(response, userID); err != nil {
		router.fail(response, "router.auth.LogIn()", err)
		return
	}
	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostLogout clears the session whether or not there was one.
func (router *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	router.auth.LogOut(response)
	http.Redirect(response, request, "/login", http.StatusFound)
}

// GetUrls lists the caller's URLs.
func (router *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	userID := auth.UserIDFromContext(request.Context())
	records, err := router.service.ListURLs(request.Context(), userID)
	if err != nil {
		router.fail(response, "router.service.ListURLs()", err)
		return
	}

	rows := make([]views.URLRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, views.URLRow{
			ShortID:  record.ShortID,
			LongURL:  record.LongURL,
			ShortURL: router.service.GetShortURL(record.ShortID),
		})
	}

	router.render(response, views.PageURLsIndex, views.URLsIndexPage{
		Page: views.Page{Header: router.header(request)},
		URLs: rows,
	})
}

// PostUrls shortens the submitted longURL and shows the new record.
func (router *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	shortID, err := router.service.CreateURL(
		request.Context(),
		auth.UserIDFromContext(request.Context()),
		request.PostFormValue("longURL"),
	)
	if err != nil {
		router.fail(response, "router.service.CreateURL()", err)
		return
	}

	http.Redirect(response, request, "/urls/"+shortID, http.StatusFound)
}

func (router *Router) GetUrlsnew(response http.ResponseWriter, request *http.Request) {
	if !isLoggedIn(request) {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}
	router.render(response, views.PageURLsNew, views.URLsNewPage{
		Page: views.Page{Header: router.header(request)},
	})
}

// GetUrlsid shows one record to its owner.
func (router *Router) GetUrlsid(response http.ResponseWriter, request *http.Request) {
	record, err := router.service.GetURL(
		request.Context(),
		auth.UserIDFromContext(request.Context()),
		chi.URLParam(request, "id"),
	)
	if err != nil {
		router.fail(response, "router.service.GetURL()", err)
		return
	}

	router.render(response, views.PageURLsShow, views.URLsShowPage{
		Page:      views.Page{Header: router.header(request)},
		ShortID:   record.ShortID,
		LongURL:   record.LongURL,
		ShortURL:  router.service.GetShortURL(record.ShortID),
		CreatedAt: record.CreatedAt,
	})
}

// PostUrlsid changes the long URL of an owned record.
func (router *Router) PostUrlsid(response http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	err := router.service.UpdateURL(
		request.Context(),
		auth.UserIDFromContext(request.Context()),
		chi.URLParam(request, "id"),
		request.PostFormValue("longURL"),
	)
	if err != nil {
		router.fail(response, "router.service.UpdateURL()", err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostUrlsiddelete removes an owned record.
func (router *Router) PostUrlsiddelete(response http.ResponseWriter, request *http.Request) {
	err := router.service.DeleteURL(
		request.Context(),
		auth.UserIDFromContext(request.Context()),
		chi.URLParam(request, "id"),
	)
	if err != nil {
		router.fail(response, "router.service.DeleteURL()", err)
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// GetUid redirects anyone to the long URL behind a short id.
func (router *Router) GetUid(response http.ResponseWriter, request *http.Request) {
	longURL, err := router.service.ResolveURL(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		router.fail(response, "router.service.ResolveURL()", err)
		return
	}

	http.Redirect(response, request, longURL, http.StatusFound)
}

// GetUrlsjson dumps the whole URL table.
func (router *Router) GetUrlsjson(response http.ResponseWriter, request *http.Request) {
	dump, err := router.service.DumpURLs(request.Context())
	if err != nil {
		router.fail(response, "router.service.DumpURLs()", err)
		return
	}

	writeJSON(response, dump)
}

func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `router.service.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats reports the number of URLs and users.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.service.GetInternalStats(request.Context())
	if err != nil {
		router.fail(response, "router.service.GetInternalStats()", err)
		return
	}

	writeJSON(response, stats)
}

func writeJSON(response http.ResponseWriter, value interface{}) {
	body, err := json.Marshal(value)
	if err != nil {
		logger.Log.Errorln("Error calling the `json.Marshal()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(body); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

type credentialsForm struct {
	Email    string
	Password string
}

func parseCredentials(request *http.Request) (credentialsForm, error) {
	if err := request.ParseForm(); err != nil {
		return credentialsForm{}, err
	}

	return credentialsForm{
		Email:    request.PostFormValue("email"),
		Password: request.PostFormValue("password"),
	}, nil
}
