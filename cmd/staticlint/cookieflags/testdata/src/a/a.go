package a

import "net/http"

func cookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "x"}) // want "http.Cookie literal without HttpOnly"

	http.SetCookie(w, &http.Cookie{Name: "session", Value: "x", HttpOnly: true})

	http.SetCookie(w, &http.Cookie{Name: "theme", HttpOnly: false})

	plain := http.Cookie{} // want "http.Cookie literal without HttpOnly"
	_ = plain

	_ = struct{ Name string }{Name: "not a cookie"}
}
