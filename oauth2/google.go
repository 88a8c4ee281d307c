package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/notably/noteauth"
)

const oauthGoogleUserInfoAPI = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

// GoogleOAuth2 implements the Google redirect login flow. Mount it at a
// prefix (e.g. /auth/google-redirect); the empty path redirects to Google
// and /callback/ completes the exchange.
type GoogleOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleClaim  HandleClaimFunc
	oauthConfig  oauth2.Config
	mux          *http.ServeMux
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleClaim HandleClaimFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := &GoogleOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		HandleClaim:  handleClaim,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

func (g *GoogleOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		log.Println("oauth state is nil")
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			MaxAge: 0,
		})
		http.Error(w, "invalid oauth google state", http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		log.Println("code exchange wrong: ", err)
		http.Error(w, "code exchange failed", http.StatusBadRequest)
		return
	}

	claim, err := fetchGoogleClaim(token)
	if err != nil {
		log.Println("error fetching google user info: ", err)
		http.Error(w, "failed to verify google identity", http.StatusUnauthorized)
		return
	}

	g.HandleClaim(claim, token, w, r)
}

// fetchGoogleClaim turns an access token into a verified claim by asking
// Google's userinfo endpoint who the token belongs to.
func fetchGoogleClaim(token *oauth2.Token) (*noteauth.FederatedClaim, error) {
	response, err := http.Get(oauthGoogleUserInfoAPI + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	var userInfo struct {
		Id    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if userInfo.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", noteauth.ErrInvalidToken)
	}

	return &noteauth.FederatedClaim{
		Email:     userInfo.Email,
		SubjectID: userInfo.Id,
		Name:      userInfo.Name,
	}, nil
}
