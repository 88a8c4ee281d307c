// Command noteauthd serves the Notably authentication API.
//
// Configuration comes from the environment:
//
//	NOTEAUTH_ADDR              listen address (default :8080)
//	NOTEAUTH_STORAGE_PATH      file store directory (default ./data)
//	NOTEAUTH_JWT_SECRET        session token signing secret (required)
//	NOTEAUTH_GOOGLE_CLIENT_ID  Google OAuth client id for federated auth
//	NOTEAUTH_SMTP_HOST/PORT/USER/PASS  SMTP for OTP delivery (console when unset)
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	gmux "github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	xoauth2 "golang.org/x/oauth2"

	"github.com/notably/noteauth"
	"github.com/notably/noteauth/oauth2"
	"github.com/notably/noteauth/stores"
)

type config struct {
	Addr           string `env:"NOTEAUTH_ADDR" envDefault:":8080"`
	StoragePath    string `env:"NOTEAUTH_STORAGE_PATH" envDefault:"./data"`
	JWTSecret      string `env:"NOTEAUTH_JWT_SECRET,required"`
	GoogleClientID string `env:"NOTEAUTH_GOOGLE_CLIENT_ID"`

	GoogleClientSecret string `env:"NOTEAUTH_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"NOTEAUTH_GOOGLE_CALLBACK_URL"`

	SMTPHost string `env:"NOTEAUTH_SMTP_HOST"`
	SMTPPort int    `env:"NOTEAUTH_SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"NOTEAUTH_SMTP_USER"`
	SMTPPass string `env:"NOTEAUTH_SMTP_PASS"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	var sender noteauth.Sender = &noteauth.ConsoleSender{}
	if cfg.SMTPHost != "" {
		sender = noteauth.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUser)
	}

	users := stores.NewFSUserStore(cfg.StoragePath)
	otp := noteauth.NewOtpStore(sender, nil)
	defer otp.Close()

	tokens := noteauth.NewTokenIssuer(cfg.JWTSecret, "notably", 0)
	auth := noteauth.NewAuth(users, otp, noteauth.NewGoogleVerifier(cfg.GoogleClientID), tokens)

	session := scs.New()
	middleware := &noteauth.Middleware{
		AuthTokenCookieName: "NotablyAuthToken",
		SessionGetter:       noteauth.SessionGetterFromSCS(session),
		VerifyToken:         tokens.VerifyTokenFunc(),
	}

	r := gmux.NewRouter()
	api := &noteauth.API{
		Auth:        auth,
		RateLimiter: noteauth.NewKeyedLimiter(1, 5),
	}
	api.Register(r)

	// Browser-initiated Google login, completing with the same account
	// resolution and session token as the API path.
	if cfg.GoogleClientSecret != "" {
		googleFlow := oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
			func(claim *noteauth.FederatedClaim, token *xoauth2.Token, w http.ResponseWriter, req *http.Request) {
				user, err := auth.Accounts.ResolveForFederatedLogin(req.Context(), claim)
				if err != nil {
					http.Error(w, `{"error": "Server error"}`, http.StatusInternalServerError)
					return
				}
				sessionToken, err := tokens.Issue(user.ID)
				if err != nil {
					http.Error(w, `{"error": "Server error"}`, http.StatusInternalServerError)
					return
				}
				session.Put(req.Context(), "loggedInUserId", user.ID)
				http.SetCookie(w, &http.Cookie{
					Name:     "NotablyAuthToken",
					Value:    sessionToken,
					Path:     "/",
					HttpOnly: true,
				})
				http.Redirect(w, req, "/", http.StatusFound)
			})
		r.PathPrefix("/auth/google-redirect").Handler(
			http.StripPrefix("/auth/google-redirect", googleFlow))
	}

	// Whoami endpoint for clients to check their session
	r.Handle("/me", middleware.EnsureUser(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id": "` + middleware.GetLoggedInUserId(req) + `"}`))
	}))).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())

	slog.Info("noteauthd listening", "addr", cfg.Addr, "storage", cfg.StoragePath)
	if err := http.ListenAndServe(cfg.Addr, session.LoadAndSave(r)); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
