package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/resilience"
)

func noRetry() resilience.Config {
	return resilience.Config{MaxAttempts: 1, InitialBackoff: time.Millisecond}
}

func TestHTTPParse(t *testing.T) {
	t.Parallel()

	var gotReq ParseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parse", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(Result{
			Parsed: model.ParsedListing{
				Title:       "Puppy Food — 10lb",
				Category:    model.ListingPetFood,
				Quantity:    "10lbs",
				Expiration:  "2027",
				Description: "Half bag of puppy food",
			},
		})
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	res, err := svc.Parse(context.Background(), ParseRequest{
		PostType: model.ExchangeOffer,
		RawText:  "Half bag of puppy food, ~10lbs, expires 2027",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ExchangeOffer, gotReq.PostType)
	assert.Equal(t, "Puppy Food — 10lb", res.Parsed.Title)
	assert.Empty(t, res.Questions)
}

func TestHTTPRefine(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refine", r.URL.Path)

		var req RefineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Answers, 1)
		assert.Equal(t, "brand", req.Answers[0].Field)

		refined := req.Parsed
		refined.Brand = req.Answers[0].Value
		json.NewEncoder(w).Encode(Result{Parsed: refined})
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	res, err := svc.Refine(context.Background(), RefineRequest{
		RawText: "puppy food",
		Parsed:  model.ParsedListing{Title: "Puppy Food", Description: "d"},
		Answers: []Answer{{Field: "brand", Value: "Acme"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.Parsed.Brand)
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Result{Parsed: model.ParsedListing{Title: "t", Description: "d"}})
	}))
	defer srv.Close()

	cfg := noRetry()
	cfg.MaxAttempts = 2
	svc := NewHTTP(srv.URL, WithRetry(cfg))

	res, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "t", res.Parsed.Title)
}

func TestHTTPNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	_, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestHTTPClientErrorIsNetwork(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	_, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsMalformed(err))
}

func TestHTTPMalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>totally not json</html>"))
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	_, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.False(t, IsNetwork(err))
}

func TestHTTPNormalizesResponse(t *testing.T) {
	t.Parallel()

	longTitle := ""
	for range 10 {
		longTitle += "0123456789"
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{
			Parsed: model.ParsedListing{
				Title:       longTitle,
				Category:    "Miscellanea",
				Description: "d",
			},
			Questions: []model.ClarifyingQuestion{
				{Field: "a", Prompt: "?"},
				{Field: "b", Prompt: "?"},
				{Field: "c", Prompt: "?"},
				{Field: "d", Prompt: "?"},
				{Field: "e", Prompt: "?"},
			},
		})
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))
	res, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeRequest, RawText: "x"})
	require.NoError(t, err)

	assert.Len(t, res.Parsed.Title, model.MaxTitleLen)
	assert.Equal(t, model.ListingOther, res.Parsed.Category)
	require.Len(t, res.Questions, MaxQuestions)
	assert.Equal(t, "a", res.Questions[0].Field, "cap keeps service order")
}

func TestHTTPClampsTitleOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// 60 runes but 61 bytes: a byte-indexed clamp would split the final rune.
	withinLimit := strings.Repeat("a", 59) + "é"
	overLimit := strings.Repeat("é", model.MaxTitleLen+1)

	title := withinLimit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{
			Parsed: model.ParsedListing{Title: title, Description: "d"},
		})
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithRetry(noRetry()))

	res, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.NoError(t, err)
	assert.Equal(t, withinLimit, res.Parsed.Title, "60 runes pass through untouched")
	assert.True(t, utf8.ValidString(res.Parsed.Title))

	title = overLimit
	res, err = svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.MaxTitleLen, utf8.RuneCountInString(res.Parsed.Title))
	assert.True(t, utf8.ValidString(res.Parsed.Title))
	assert.NoError(t, res.Parsed.Validate())
}

func TestHTTPSendsAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Result{})
	}))
	defer srv.Close()

	svc := NewHTTP(srv.URL, WithAPIKey("sekrit"), WithRetry(noRetry()))
	_, err := svc.Parse(context.Background(), ParseRequest{PostType: model.ExchangeOffer, RawText: "x"})
	require.NoError(t, err)
}
