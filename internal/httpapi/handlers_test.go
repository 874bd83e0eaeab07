package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/mood"
)

var errNotImplemented = errors.New("not implemented in this test")

type fakeAuthService struct {
	registerFn       func(ctx context.Context, email, password string) (*auth.Account, error)
	loginFn          func(ctx context.Context, email, password string) (*auth.Session, error)
	loginFederatedFn func(ctx context.Context, assertion auth.Assertion) (*auth.FederatedLogin, error)
	changePasswordFn func(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) (*auth.Account, error)
	getAccountFn     func(ctx context.Context, id ulid.ULID) (*auth.Account, error)
}

func (f *fakeAuthService) Register(ctx context.Context, email, password string) (*auth.Account, error) {
	if f.registerFn == nil {
		return nil, errNotImplemented
	}
	return f.registerFn(ctx, email, password)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if f.loginFn == nil {
		return nil, errNotImplemented
	}
	return f.loginFn(ctx, email, password)
}

func (f *fakeAuthService) LoginFederated(ctx context.Context, assertion auth.Assertion) (*auth.FederatedLogin, error) {
	if f.loginFederatedFn == nil {
		return nil, errNotImplemented
	}
	return f.loginFederatedFn(ctx, assertion)
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) (*auth.Account, error) {
	if f.changePasswordFn == nil {
		return nil, errNotImplemented
	}
	return f.changePasswordFn(ctx, accountID, oldPassword, newPassword)
}

func (f *fakeAuthService) GetAccount(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	if f.getAccountFn == nil {
		return nil, errNotImplemented
	}
	return f.getAccountFn(ctx, id)
}

type fakeMoodService struct {
	createFn        func(ctx context.Context, accountID ulid.ULID, value int, timestamp time.Time) (*mood.Rating, error)
	listByAccountFn func(ctx context.Context, accountID ulid.ULID) ([]*mood.Rating, error)
	listBetweenFn   func(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*mood.Rating, error)
	averagePerDayFn func(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]mood.DayAverage, error)
}

func (f *fakeMoodService) Create(ctx context.Context, accountID ulid.ULID, value int, timestamp time.Time) (*mood.Rating, error) {
	if f.createFn == nil {
		return nil, errNotImplemented
	}
	return f.createFn(ctx, accountID, value, timestamp)
}

func (f *fakeMoodService) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*mood.Rating, error) {
	if f.listByAccountFn == nil {
		return nil, errNotImplemented
	}
	return f.listByAccountFn(ctx, accountID)
}

func (f *fakeMoodService) ListBetween(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*mood.Rating, error) {
	if f.listBetweenFn == nil {
		return nil, errNotImplemented
	}
	return f.listBetweenFn(ctx, accountID, from, to)
}

func (f *fakeMoodService) AveragePerDay(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]mood.DayAverage, error) {
	if f.averagePerDayFn == nil {
		return nil, errNotImplemented
	}
	return f.averagePerDayFn(ctx, accountID, from, to)
}

type fakeVerifier struct {
	verifyFn func(ctx context.Context, rawToken string) (auth.Assertion, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, rawToken string) (auth.Assertion, error) {
	return f.verifyFn(ctx, rawToken)
}

func testCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec(key, &key.PublicKey, time.Hour)
	require.NoError(t, err)
	return codec
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Codec == nil {
		cfg.Codec = testCodec(t)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func testAccount(t *testing.T) *auth.Account {
	t.Helper()
	hash := "$argon2id$fake"
	account, err := auth.NewAccount("ada@example.com", &hash)
	require.NoError(t, err)
	return account
}

func TestRegister_Created(t *testing.T) {
	account := testAccount(t)
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			registerFn: func(_ context.Context, email, password string) (*auth.Account, error) {
				assert.Equal(t, "ada@example.com", email)
				assert.Equal(t, "hunter22", password)
				return account, nil
			},
		},
		Moods: &fakeMoodService{},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", "", map[string]string{
		"email":           "ada@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var got accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, account.ID.String(), got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.HasPassword)
}

func TestRegister_ConfirmMismatch(t *testing.T) {
	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", "", map[string]string{
		"email":           "ada@example.com",
		"password":        "hunter22",
		"confirmPassword": "different",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_ShortPasswordRejectedBySchema(t *testing.T) {
	called := false
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			registerFn: func(context.Context, string, string) (*auth.Account, error) {
				called = true
				return nil, nil
			},
		},
		Moods: &fakeMoodService{},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", "", map[string]string{
		"email":           "ada@example.com",
		"password":        "short",
		"confirmPassword": "short",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called, "service must not be reached on schema failure")
}

func TestRegister_MissingFields(t *testing.T) {
	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", "", map[string]string{
		"email": "ada@example.com",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Conflict(t *testing.T) {
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			registerFn: func(context.Context, string, string) (*auth.Account, error) {
				return nil, auth.ErrConflict
			},
		},
		Moods: &fakeMoodService{},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", "", map[string]string{
		"email":           "ada@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_Success(t *testing.T) {
	accountID := ulid.Make()
	issued := time.Now().UTC().Truncate(time.Second)
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			loginFn: func(context.Context, string, string) (*auth.Session, error) {
				return &auth.Session{
					Token:      "signed-token",
					AccountID:  accountID,
					IssuedAt:   issued,
					ExpiresAt:  issued.Add(24 * time.Hour),
					LogOverdue: true,
				}, nil
			},
		},
		Moods: &fakeMoodService{},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "hunter22",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "signed-token", got.Token)
	assert.Equal(t, accountID.String(), got.UserID)
	assert.Equal(t, int64(86400), got.ExpiresIn)
	assert.True(t, got.LogOverdue)
}

func TestLogin_InvalidCredentialsAreGeneric(t *testing.T) {
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			loginFn: func(context.Context, string, string) (*auth.Session, error) {
				return nil, auth.ErrInvalidCredentials
			},
		},
		Moods: &fakeMoodService{},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever1",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var got errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), got.Message)
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/auth/google", "", map[string]string{
		"providerToken": "some-token",
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGoogleLogin_BadProviderToken(t *testing.T) {
	srv := newTestServer(t, Config{
		Auth:  &fakeAuthService{},
		Moods: &fakeMoodService{},
		Google: &fakeVerifier{
			verifyFn: func(context.Context, string) (auth.Assertion, error) {
				return auth.Assertion{}, auth.ErrUnauthorized
			},
		},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/auth/google", "", map[string]string{
		"providerToken": "garbage",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleLogin_LoggedIn(t *testing.T) {
	accountID := ulid.Make()
	issued := time.Now().UTC()
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			loginFederatedFn: func(_ context.Context, assertion auth.Assertion) (*auth.FederatedLogin, error) {
				assert.Equal(t, auth.ProviderGoogle, assertion.Provider)
				assert.Equal(t, "subject-42", assertion.SubjectID)
				return &auth.FederatedLogin{
					Status: auth.StatusLoggedIn,
					Session: &auth.Session{
						Token:     "signed-token",
						AccountID: accountID,
						IssuedAt:  issued,
						ExpiresAt: issued.Add(time.Hour),
					},
				}, nil
			},
		},
		Moods: &fakeMoodService{},
		Google: &fakeVerifier{
			verifyFn: func(context.Context, string) (auth.Assertion, error) {
				return auth.Assertion{
					Provider:  auth.ProviderGoogle,
					SubjectID: "subject-42",
					Email:     "ada@example.com",
				}, nil
			},
		},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/auth/google", "", map[string]string{
		"providerToken": "valid-token",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got federatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(auth.StatusLoggedIn), got.Status)
	require.NotNil(t, got.Session)
	assert.Equal(t, accountID.String(), got.Session.UserID)
}

func TestGoogleLogin_PromptPasswordLogin(t *testing.T) {
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			loginFederatedFn: func(context.Context, auth.Assertion) (*auth.FederatedLogin, error) {
				return &auth.FederatedLogin{Status: auth.StatusPromptPasswordLogin}, nil
			},
		},
		Moods: &fakeMoodService{},
		Google: &fakeVerifier{
			verifyFn: func(context.Context, string) (auth.Assertion, error) {
				return auth.Assertion{
					Provider:  auth.ProviderGoogle,
					SubjectID: "subject-42",
					Email:     "ada@example.com",
				}, nil
			},
		},
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/auth/google", "", map[string]string{
		"providerToken": "valid-token",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got federatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(auth.StatusPromptPasswordLogin), got.Status)
	assert.Nil(t, got.Session)
}

func TestGuardedRoutes_RejectMissingToken(t *testing.T) {
	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}})
	router := srv.Router()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/me"},
		{http.MethodPut, "/me"},
		{http.MethodGet, "/ratings"},
		{http.MethodPost, "/ratings"},
		{http.MethodGet, "/ratings/average"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, "", nil)
		assert.Equalf(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		assert.JSONEqf(t, `{"status":"error","message":"unauthorized"}`, rec.Body.String(), "%s %s", tc.method, tc.path)
	}
}

func TestGetMe(t *testing.T) {
	codec := testCodec(t)
	account := testAccount(t)
	token, _, err := codec.Issue(account.ID, 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			getAccountFn: func(_ context.Context, id ulid.ULID) (*auth.Account, error) {
				assert.Equal(t, account.ID, id)
				return account, nil
			},
		},
		Moods: &fakeMoodService{},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, account.ID.String(), got.ID)
}

func TestUpdateMe_ChangePassword(t *testing.T) {
	codec := testCodec(t)
	account := testAccount(t)
	token, _, err := codec.Issue(account.ID, 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			changePasswordFn: func(_ context.Context, id ulid.ULID, oldPassword, newPassword string) (*auth.Account, error) {
				assert.Equal(t, account.ID, id)
				assert.Equal(t, "hunter22", oldPassword)
				assert.Equal(t, "hunter23", newPassword)
				return account, nil
			},
		},
		Moods: &fakeMoodService{},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodPut, "/me", token, map[string]string{
		"oldPassword": "hunter22",
		"newPassword": "hunter23",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMe_EmptyBodyIsNoop(t *testing.T) {
	codec := testCodec(t)
	account := testAccount(t)
	token, _, err := codec.Issue(account.ID, 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{
			changePasswordFn: func(_ context.Context, _ ulid.ULID, oldPassword, newPassword string) (*auth.Account, error) {
				assert.Empty(t, oldPassword)
				assert.Empty(t, newPassword)
				return account, nil
			},
		},
		Moods: &fakeMoodService{},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodPut, "/me", token, map[string]string{})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRating(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()
	token, _, err := codec.Issue(accountID, 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{},
		Moods: &fakeMoodService{
			createFn: func(_ context.Context, id ulid.ULID, value int, timestamp time.Time) (*mood.Rating, error) {
				assert.Equal(t, accountID, id)
				assert.Equal(t, 7, value)
				assert.True(t, timestamp.IsZero(), "omitted timestamp should arrive zero")
				return mood.NewRating(id, value, time.Now())
			},
		},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/ratings", token, map[string]any{
		"value": 7,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var got ratingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 7, got.Value)
}

func TestCreateRating_ValueOutOfRange(t *testing.T) {
	codec := testCodec(t)
	token, _, err := codec.Issue(ulid.Make(), 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}, Codec: codec})

	for _, value := range []int{0, 11, -3} {
		rec := doJSON(t, srv.Router(), http.MethodPost, "/ratings", token, map[string]any{
			"value": value,
		})
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "value %d", value)
	}
}

func TestListRatings_All(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()
	token, _, err := codec.Issue(accountID, 0)
	require.NoError(t, err)

	rating, err := mood.NewRating(accountID, 5, time.Now())
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{},
		Moods: &fakeMoodService{
			listByAccountFn: func(context.Context, ulid.ULID) ([]*mood.Rating, error) {
				return []*mood.Rating{rating}, nil
			},
		},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/ratings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []ratingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Value)
}

func TestListRatings_HalfOpenRangeRejected(t *testing.T) {
	codec := testCodec(t)
	token, _, err := codec.Issue(ulid.Make(), 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{Auth: &fakeAuthService{}, Moods: &fakeMoodService{}, Codec: codec})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/ratings?from=2026-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatingAverages_DateRange(t *testing.T) {
	codec := testCodec(t)
	accountID := ulid.Make()
	token, _, err := codec.Issue(accountID, 0)
	require.NoError(t, err)

	avg := 6.5
	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{},
		Moods: &fakeMoodService{
			averagePerDayFn: func(_ context.Context, _ ulid.ULID, from, to time.Time) ([]mood.DayAverage, error) {
				assert.Equal(t, "2026-01-01", from.UTC().Format("2006-01-02"))
				// A plain "to" date must cover the whole day.
				assert.Equal(t, "2026-01-03", to.UTC().Format("2006-01-02"))
				assert.Equal(t, 23, to.UTC().Hour())
				return []mood.DayAverage{
					{Date: "2026-01-01", Rating: &avg},
					{Date: "2026-01-02"},
					{Date: "2026-01-03"},
				}, nil
			},
		},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/ratings/average?from=2026-01-01&to=2026-01-03", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []dayAverageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	require.NotNil(t, got[0].Rating)
	assert.InDelta(t, 6.5, *got[0].Rating, 0.0001)
	assert.Nil(t, got[1].Rating)
}

func TestRatingAverages_DefaultWindowIsSevenDays(t *testing.T) {
	codec := testCodec(t)
	token, _, err := codec.Issue(ulid.Make(), 0)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Auth: &fakeAuthService{},
		Moods: &fakeMoodService{
			averagePerDayFn: func(_ context.Context, _ ulid.ULID, from, to time.Time) ([]mood.DayAverage, error) {
				days := int(to.Sub(from).Hours()/24) + 1
				assert.Equal(t, 7, days)
				return nil, nil
			},
		},
		Codec: codec,
	})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/ratings/average", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", auth.ErrValidation, http.StatusBadRequest},
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized},
		{"conflict", auth.ErrConflict, http.StatusConflict},
		{"not found", auth.ErrNotFound, http.StatusNotFound},
		{"unavailable", auth.ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestStatusFor_UnknownErrorHidesDetail(t *testing.T) {
	_, message := statusFor(errors.New("pq: connection refused at 10.0.0.3"))
	assert.Equal(t, "internal server error", message)
}
