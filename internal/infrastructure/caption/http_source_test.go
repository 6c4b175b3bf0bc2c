package caption

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vidsum/orchestrator/internal/config"
	"github.com/vidsum/orchestrator/internal/domain/repository"
)

func TestPickLanguagePrefersEarlierEntry(t *testing.T) {
	tracks := []track{{LangCode: "de"}, {LangCode: "es"}, {LangCode: "en"}}
	lang, ok := pickLanguage(tracks, []string{"en", "es", "pt"})
	require.True(t, ok)
	require.Equal(t, "en", lang)
}

func TestPickLanguageFallsThroughToLaterPreference(t *testing.T) {
	tracks := []track{{LangCode: "fr"}, {LangCode: "ja"}}
	lang, ok := pickLanguage(tracks, []string{"en", "es", "ja"})
	require.True(t, ok)
	require.Equal(t, "ja", lang)
}

func TestPickLanguageNoMatchReturnsFalse(t *testing.T) {
	tracks := []track{{LangCode: "th"}}
	_, ok := pickLanguage(tracks, []string{"en", "es"})
	require.False(t, ok)
}

func newTestServer(t *testing.T, listBody, transcriptBody string, listStatus, transcriptStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == "list" {
			w.WriteHeader(listStatus)
			fmt.Fprint(w, listBody)
			return
		}
		w.WriteHeader(transcriptStatus)
		fmt.Fprint(w, transcriptBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsTimedTextInPreferredLanguage(t *testing.T) {
	list := `<transcript_list><track lang_code="de"/><track lang_code="en"/></transcript_list>`
	transcript := `<transcript><text start="0.5" dur="2.3">hello</text><text start="2.8" dur="1.1">world</text></transcript>`
	srv := newTestServer(t, list, transcript, http.StatusOK, http.StatusOK)

	src := NewHTTPSource(&config.CaptionConfig{
		Endpoint:           srv.URL,
		LanguagePreference: []string{"en", "es"},
		FetchTimeout:       5 * time.Second,
	})

	texts, lang, err := src.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "en", lang)
	require.Len(t, texts, 2)
	require.Equal(t, "hello", texts[0].Text)
	require.Equal(t, 0.5, texts[0].Start)
}

func TestFetchReturnsTranscriptsDisabledWhenNoTracksListed(t *testing.T) {
	srv := newTestServer(t, `<transcript_list></transcript_list>`, "", http.StatusOK, http.StatusOK)

	src := NewHTTPSource(&config.CaptionConfig{Endpoint: srv.URL, LanguagePreference: []string{"en"}})

	_, _, err := src.Fetch(context.Background(), "abc123")
	require.ErrorIs(t, err, repository.ErrTranscriptsDisabled)
}

func TestFetchReturnsNoTranscriptWhenLanguageUnmatched(t *testing.T) {
	srv := newTestServer(t, `<transcript_list><track lang_code="th"/></transcript_list>`, "", http.StatusOK, http.StatusOK)

	src := NewHTTPSource(&config.CaptionConfig{Endpoint: srv.URL, LanguagePreference: []string{"en", "es"}})

	_, _, err := src.Fetch(context.Background(), "abc123")
	require.ErrorIs(t, err, repository.ErrNoTranscript)
}

func TestFetchReturnsTranscriptsDisabledOn404List(t *testing.T) {
	srv := newTestServer(t, "", "", http.StatusNotFound, http.StatusOK)

	src := NewHTTPSource(&config.CaptionConfig{Endpoint: srv.URL, LanguagePreference: []string{"en"}})

	_, _, err := src.Fetch(context.Background(), "abc123")
	require.ErrorIs(t, err, repository.ErrTranscriptsDisabled)
}
